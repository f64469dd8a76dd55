package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/model"
	"schoolhub/internal/repository"
)

// UserService exposes administrative user management. Every call is scoped
// to the acting user's school unless the actor is a super admin.
type UserService interface {
	ListUsers(ctx context.Context, actor *model.User, filter repository.UserFilter) ([]model.User, error)
	GetUser(ctx context.Context, actor *model.User, id uuid.UUID) (*model.User, error)
	SetUserStatus(ctx context.Context, actor *model.User, id uuid.UUID, active bool) (*model.User, error)
	DeleteUser(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type userService struct {
	repo   repository.UserRepository
	logger zerolog.Logger
}

// NewUserService builds a UserService.
func NewUserService(repo repository.UserRepository, logger zerolog.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) ListUsers(ctx context.Context, actor *model.User, filter repository.UserFilter) ([]model.User, error) {
	if actor.Role != model.RoleSuperAdmin {
		if actor.SchoolID == nil {
			return []model.User{}, nil
		}
		filter.SchoolID = actor.SchoolID
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, actor *model.User, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByIDWithoutSecrets(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	// Users of other schools are reported as absent.
	if !canSee(actor, user) {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (s *userService) SetUserStatus(ctx context.Context, actor *model.User, id uuid.UUID, active bool) (*model.User, error) {
	if actor.ID == id && !active {
		return nil, apperrors.NewValidation("You cannot deactivate your own account")
	}

	user, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info().
		Str("actor_id", actor.ID.String()).
		Str("user_id", user.ID.String()).
		Bool("active", active).
		Msg("user status changed")
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if actor.ID == id {
		return apperrors.NewValidation("You cannot delete your own account")
	}

	if _, err := s.loadManaged(ctx, actor, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info().Str("actor_id", actor.ID.String()).Str("user_id", id.String()).Msg("user deleted")
	return nil
}

// loadManaged returns the full record of a user the actor may modify.
func (s *userService) loadManaged(ctx context.Context, actor *model.User, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !canSee(actor, user) {
		return nil, apperrors.ErrNotFound
	}
	if user.Role == model.RoleSuperAdmin && actor.Role != model.RoleSuperAdmin {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return user, nil
}

func canSee(actor, user *model.User) bool {
	return actor.Role == model.RoleSuperAdmin || actor.SameSchool(user)
}
