package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"schoolhub/internal/auth"
	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/metrics"
	"schoolhub/internal/model"
)

const (
	// ContextKeyUser holds the live *model.User of an authenticated request.
	ContextKeyUser = "auth_user"
	// ContextKeyClaims holds the verified *auth.AccessClaims.
	ContextKeyClaims = "auth_claims"

	tokenLookup = "header:" + echo.HeaderAuthorization + ":Bearer "
)

// UserLookup loads the current user record without secrets.
type UserLookup interface {
	FindByIDWithoutSecrets(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Authenticator resolves bearer tokens to live, active users.
type Authenticator struct {
	jwt    *auth.JWTService
	tokens auth.TokenStoreInterface
	users  UserLookup
	logger zerolog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(jwtService *auth.JWTService, tokens auth.TokenStoreInterface, users UserLookup, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		jwt:    jwtService,
		tokens: tokens,
		users:  users,
		logger: logger.With().Str("component", "auth_middleware").Logger(),
	}
}

// Authenticate rejects the request unless it carries a valid access token
// for an existing, active user.
func (a *Authenticator) Authenticate() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:     ContextKeyUser,
		TokenLookup:    tokenLookup,
		ParseTokenFunc: a.parseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			return a.reject(c, err)
		},
	})
}

// Optional resolves the user like Authenticate but lets the request through
// anonymously on any failure.
func (a *Authenticator) Optional() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:     ContextKeyUser,
		TokenLookup:    tokenLookup,
		ParseTokenFunc: a.parseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
		ContinueOnIgnoredError: true,
	})
}

// parseToken runs the full resolution: signature and expiry, revocation,
// user lookup and the active flag.
func (a *Authenticator) parseToken(c echo.Context, token string) (interface{}, error) {
	claims, err := a.jwt.VerifyAccess(token)
	if err != nil {
		return nil, err
	}

	ctx := c.Request().Context()
	revoked, err := a.tokens.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.ErrRevokedToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken.Wrap(err)
	}
	user, err := a.users.FindByIDWithoutSecrets(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDeactivated
	}

	c.Set(ContextKeyClaims, claims)
	return user, nil
}

// reject turns a middleware failure into a typed error for the HTTP error
// handler. Anything that is not an auth error means no usable token was found.
func (a *Authenticator) reject(c echo.Context, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		var parseErr *echojwt.TokenParsingError
		if errors.As(err, &parseErr) {
			a.logger.Error().Err(err).Str("path", c.Path()).Msg("token resolution failed")
			return err
		}
		appErr = apperrors.ErrMissingToken
	}
	metrics.ObserveRejection(appErr.Code)
	return appErr
}

// RequireRole allows the request only when the user's role is one of roles.
// It must run after Authenticate.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := UserFromContext(c)
			if !ok {
				return apperrors.ErrMissingToken
			}
			if _, ok := allowed[user.Role]; !ok {
				metrics.ObserveRejection(apperrors.ErrInsufficientPermissions.Code)
				return apperrors.ErrInsufficientPermissions
			}
			return next(c)
		}
	}
}

// RequirePermission allows the request only when the user's role grants
// permission. It must run after Authenticate.
func RequirePermission(permission auth.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := UserFromContext(c)
			if !ok {
				return apperrors.ErrMissingToken
			}
			if !auth.Can(user.Role, permission) {
				metrics.ObserveRejection(apperrors.ErrInsufficientPermissions.Code)
				return apperrors.ErrInsufficientPermissions
			}
			return next(c)
		}
	}
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(ContextKeyUser).(*model.User)
	return user, ok && user != nil
}

// ClaimsFromContext returns the verified access claims, if any.
func ClaimsFromContext(c echo.Context) (*auth.AccessClaims, bool) {
	claims, ok := c.Get(ContextKeyClaims).(*auth.AccessClaims)
	return claims, ok && claims != nil
}

// AccessExpiry returns the expiry of the presented access token.
func AccessExpiry(claims *auth.AccessClaims) time.Time {
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
