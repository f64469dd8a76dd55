package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account that can authenticate against the API.
type User struct {
	ID                   uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Email                string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash         string         `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	FullName             string         `json:"fullName" gorm:"size:255;not null"`
	Phone                string         `json:"phone,omitempty" gorm:"size:32"`
	Role                 Role           `json:"role" gorm:"size:32;not null;index"`
	SchoolID             *uuid.UUID     `json:"schoolId,omitempty" gorm:"type:char(36);index"`
	IsActive             bool           `json:"isActive" gorm:"not null;index"`
	ResetPasswordToken   *string        `json:"-" gorm:"size:64;index"`
	ResetPasswordExpires *time.Time     `json:"-"`
	LastLogin            *time.Time     `json:"lastLogin,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`

	School *School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SchoolIDString returns the tenant id or an empty string for users without a school.
func (u *User) SchoolIDString() string {
	if u.SchoolID == nil {
		return ""
	}
	return u.SchoolID.String()
}

// SameSchool reports whether both users belong to the same tenant.
func (u *User) SameSchool(other *User) bool {
	if u.SchoolID == nil || other.SchoolID == nil {
		return false
	}
	return *u.SchoolID == *other.SchoolID
}

// ClearPasswordReset drops any pending reset token.
func (u *User) ClearPasswordReset() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
}
