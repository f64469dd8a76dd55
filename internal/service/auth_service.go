package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"schoolhub/internal/auth"
	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/metrics"
	"schoolhub/internal/model"
	"schoolhub/internal/repository"
)

const (
	// DefaultResetTokenTTL is how long a password reset token stays usable.
	DefaultResetTokenTTL = time.Hour
	resetTokenBytes      = 32
)

// RegisterInput carries the fields accepted on registration.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     model.Role
	SchoolID *uuid.UUID
}

// LogoutInput identifies what to revoke on logout.
type LogoutInput struct {
	UserID          uuid.UUID
	AccessTokenID   string
	AccessExpiresAt time.Time
	RefreshToken    string // optional
}

// AuthResult is returned by every operation that issues tokens.
type AuthResult struct {
	User   *model.User
	Tokens *auth.TokenPair
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, in LogoutInput) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

// AuthDeps bundles the collaborators of the authentication service.
type AuthDeps struct {
	Users         repository.UserRepository
	Schools       repository.SchoolRepository
	JWT           *auth.JWTService
	Tokens        auth.TokenStoreInterface
	Hasher        *auth.PasswordHasher
	Notifier      ResetNotifier
	ResetTokenTTL time.Duration
	Logger        zerolog.Logger
}

type authService struct {
	users         repository.UserRepository
	schools       repository.SchoolRepository
	jwt           *auth.JWTService
	tokens        auth.TokenStoreInterface
	hasher        *auth.PasswordHasher
	notifier      ResetNotifier
	resetTokenTTL time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(deps AuthDeps) AuthService {
	ttl := deps.ResetTokenTTL
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogResetNotifier(deps.Logger, false)
	}
	return &authService{
		users:         deps.Users,
		schools:       deps.Schools,
		jwt:           deps.JWT,
		tokens:        deps.Tokens,
		hasher:        deps.Hasher,
		notifier:      notifier,
		resetTokenTTL: ttl,
		logger:        deps.Logger.With().Str("component", "auth_service").Logger(),
		now:           time.Now,
	}
}

// Register creates a new user with a hashed password and signs them in.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role := in.Role
	if role == "" {
		role = model.DefaultRole
	}
	if !role.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("Invalid role %q", role))
	}

	if in.SchoolID != nil {
		if _, err := s.schools.FindByID(ctx, *in.SchoolID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrSchoolNotFound
			}
			return nil, fmt.Errorf("find school: %w", err)
		}
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Role:         role,
		SchoolID:     in.SchoolID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Two concurrent registrations can both pass the lookup above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user registered")
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login verifies credentials and issues a token pair. An unknown email and a
// wrong password produce the same error.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.Equalize(password)
			metrics.ObserveLogin(metrics.LoginInvalid)
			return nil, apperrors.ErrInvalidCredentials
		}
		metrics.ObserveLogin(metrics.LoginError)
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive {
		metrics.ObserveLogin(metrics.LoginDeactivated)
		return nil, apperrors.ErrAccountDeactivated
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.ObserveLogin(metrics.LoginInvalid)
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record last login")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		metrics.ObserveLogin(metrics.LoginError)
		return nil, err
	}

	metrics.ObserveLogin(metrics.LoginSuccess)
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// RefreshToken exchanges a refresh token for a new pair. The old refresh
// token is consumed before anything else, so a replay fails even when the
// exchange itself is rejected later. New claims come from the current user.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwt.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken.Wrap(err)
	}

	storedUserID, err := s.tokens.ConsumeRefreshToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken.Wrap(err)
		}
		return nil, err
	}
	if storedUserID.String() != claims.UserID {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, storedUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDeactivated
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Logout revokes the presented access token and, when supplied, the refresh
// token. It always succeeds; store failures are only logged.
func (s *authService) Logout(ctx context.Context, in LogoutInput) error {
	log := s.logger.With().Str("user_id", in.UserID.String()).Logger()

	if in.AccessTokenID != "" {
		ttl := in.AccessExpiresAt.Sub(s.now())
		if err := s.tokens.RevokeAccessToken(ctx, in.AccessTokenID, ttl); err != nil {
			log.Error().Err(err).Msg("failed to revoke access token")
		}
	}

	if in.RefreshToken != "" {
		claims, err := s.jwt.VerifyRefresh(in.RefreshToken)
		switch {
		case err != nil:
			log.Debug().Err(err).Msg("ignoring unusable refresh token on logout")
		case claims.UserID != in.UserID.String():
			log.Warn().Msg("refresh token on logout belongs to another user")
		default:
			if err := s.tokens.DeleteRefreshToken(ctx, claims.ID); err != nil {
				log.Error().Err(err).Msg("failed to revoke refresh token")
			}
		}
	}

	log.Info().Msg("user logged out")
	return nil
}

// RequestPasswordReset stores a single-use reset token for the user, if one
// exists. The caller always sees success.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Msg("password reset lookup failed")
		}
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate reset token")
		return nil
	}

	digest := hashResetToken(token)
	expires := s.now().Add(s.resetTokenTTL)
	user.ResetPasswordToken = &digest
	user.ResetPasswordExpires = &expires
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to store reset token")
		return nil
	}

	if err := s.notifier.NotifyPasswordReset(ctx, user, token, expires); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to deliver reset token")
	}
	return nil
}

// ResetPassword sets a new password using an unexpired reset token and
// consumes the token.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperrors.ErrInvalidResetToken
	}

	digest := hashResetToken(token)
	now := s.now()
	user, err := s.users.FindByResetToken(ctx, digest, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return fmt.Errorf("find reset token: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The update only matches while the token is still stored, so of two
	// requests racing with the same token exactly one wins.
	if err := s.users.ConsumeResetToken(ctx, user.ID, digest, hash, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = hash
	user.ClearPasswordReset()

	s.logger.Info().Str("user_id", user.ID.String()).Msg("password reset completed")
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperrors.ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.ClearPasswordReset()

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("password changed")
	return nil
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*auth.TokenPair, error) {
	pair, err := s.jwt.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.tokens.StoreRefreshToken(ctx, pair.RefreshTokenID, user.ID, s.jwt.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	metrics.ObserveTokensIssued()
	return pair, nil
}

func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
