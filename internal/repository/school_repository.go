package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolhub/internal/model"
)

// SchoolRepository defines tenant persistence operations.
type SchoolRepository interface {
	Create(ctx context.Context, school *model.School) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.School, error)
	FindByName(ctx context.Context, name string) (*model.School, error)
	FindByNameOrCreate(ctx context.Context, school *model.School) (*model.School, error)
}

type schoolRepository struct {
	db *gorm.DB
}

// NewSchoolRepository creates a new school repository.
func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

// Create creates a new school.
func (r *schoolRepository) Create(ctx context.Context, school *model.School) error {
	return r.db.WithContext(ctx).Create(school).Error
}

// FindByID finds a school by ID.
func (r *schoolRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.School, error) {
	var school model.School
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&school).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

// FindByName finds a school by its exact name.
func (r *schoolRepository) FindByName(ctx context.Context, name string) (*model.School, error) {
	var school model.School
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&school).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

// FindByNameOrCreate returns the school with the given name, creating it if needed.
func (r *schoolRepository) FindByNameOrCreate(ctx context.Context, school *model.School) (*model.School, error) {
	existing, err := r.FindByName(ctx, school.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.Create(ctx, school); err != nil {
		return nil, err
	}
	return school, nil
}
