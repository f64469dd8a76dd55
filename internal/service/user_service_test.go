package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/logger"
	"schoolhub/internal/model"
	"schoolhub/internal/repository"
)

func member(role model.Role, school *uuid.UUID) *model.User {
	return &model.User{ID: uuid.New(), Role: role, SchoolID: school, IsActive: true}
}

func TestUserService_ListUsers_ScopedToSchool(t *testing.T) {
	school := uuid.New()
	admin := member(model.RoleSchoolAdmin, &school)

	repo := new(MockUserRepository)
	repo.On("List", mock.Anything, repository.UserFilter{SchoolID: &school}).
		Return([]model.User{*admin}, nil)

	svc := NewUserService(repo, logger.Nop())
	users, err := svc.ListUsers(context.Background(), admin, repository.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	repo.AssertExpectations(t)
}

func TestUserService_ListUsers_SuperAdminSeesAll(t *testing.T) {
	root := member(model.RoleSuperAdmin, nil)
	role := model.RoleTeacher

	repo := new(MockUserRepository)
	repo.On("List", mock.Anything, repository.UserFilter{Role: &role}).Return([]model.User{}, nil)

	svc := NewUserService(repo, logger.Nop())
	_, err := svc.ListUsers(context.Background(), root, repository.UserFilter{Role: &role})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUserService_ListUsers_NoSchool(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, logger.Nop())

	users, err := svc.ListUsers(context.Background(), member(model.RoleSchoolAdmin, nil), repository.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestUserService_GetUser_OtherSchoolIsNotFound(t *testing.T) {
	mine, theirs := uuid.New(), uuid.New()
	admin := member(model.RoleSchoolAdmin, &mine)
	target := member(model.RoleTeacher, &theirs)

	repo := new(MockUserRepository)
	repo.On("FindByIDWithoutSecrets", mock.Anything, target.ID).Return(target, nil)

	svc := NewUserService(repo, logger.Nop())
	_, err := svc.GetUser(context.Background(), admin, target.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	root := member(model.RoleSuperAdmin, nil)
	got, err := svc.GetUser(context.Background(), root, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)
}

func TestUserService_SetUserStatus(t *testing.T) {
	school := uuid.New()

	tests := []struct {
		name          string
		actor         *model.User
		target        *model.User
		active        bool
		setupMock     func(*MockUserRepository, *model.User)
		expectedError error
	}{
		{
			name:   "school admin deactivates a teacher",
			actor:  member(model.RoleSchoolAdmin, &school),
			target: member(model.RoleTeacher, &school),
			active: false,
			setupMock: func(m *MockUserRepository, u *model.User) {
				m.On("FindByID", mock.Anything, u.ID).Return(u, nil)
				m.On("Update", mock.Anything, u).Return(nil)
			},
		},
		{
			name:   "school admin cannot touch a super admin",
			actor:  member(model.RoleSchoolAdmin, &school),
			target: member(model.RoleSuperAdmin, &school),
			active: false,
			setupMock: func(m *MockUserRepository, u *model.User) {
				m.On("FindByID", mock.Anything, u.ID).Return(u, nil)
			},
			expectedError: apperrors.ErrInsufficientPermissions,
		},
		{
			name:   "missing user",
			actor:  member(model.RoleSuperAdmin, nil),
			target: member(model.RoleTeacher, &school),
			active: true,
			setupMock: func(m *MockUserRepository, u *model.User) {
				m.On("FindByID", mock.Anything, u.ID).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setupMock(repo, tt.target)
			svc := NewUserService(repo, logger.Nop())

			user, err := svc.SetUserStatus(context.Background(), tt.actor, tt.target.ID, tt.active)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.active, user.IsActive)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_SetUserStatus_Self(t *testing.T) {
	school := uuid.New()
	admin := member(model.RoleSchoolAdmin, &school)
	repo := new(MockUserRepository)
	svc := NewUserService(repo, logger.Nop())

	_, err := svc.SetUserStatus(context.Background(), admin, admin.ID, false)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_DeleteUser(t *testing.T) {
	school := uuid.New()
	admin := member(model.RoleSchoolAdmin, &school)
	target := member(model.RoleStudent, &school)

	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, target.ID).Return(target, nil)
	repo.On("Delete", mock.Anything, target.ID).Return(nil)

	svc := NewUserService(repo, logger.Nop())
	require.NoError(t, svc.DeleteUser(context.Background(), admin, target.ID))
	repo.AssertExpectations(t)

	err := svc.DeleteUser(context.Background(), admin, admin.ID)
	assert.Error(t, err)
}
