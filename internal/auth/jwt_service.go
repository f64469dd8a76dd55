package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/model"
)

const (
	// DefaultAccessTokenExpiry is the duration for which access tokens are valid.
	DefaultAccessTokenExpiry = time.Hour
	// DefaultRefreshTokenExpiry is the duration for which refresh tokens are valid.
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// AccessClaims is the claim set of an access token.
type AccessClaims struct {
	UserID   string     `json:"userId"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	SchoolID string     `json:"schoolId,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a refresh token.
type RefreshClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenPair is the result of issuing tokens for a user.
type TokenPair struct {
	AccessToken      string
	AccessTokenID    string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshTokenID   string
	RefreshExpiresAt time.Time
}

// JWTConfig configures a JWTService.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// JWTService handles JWT token generation and validation. Access and refresh
// tokens are signed with distinct secrets.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("jwt: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenExpiry
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenExpiry
	}
	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the access token lifetime.
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue generates a new access and refresh token for the user.
func (s *JWTService) Issue(user *model.User) (*TokenPair, error) {
	now := s.now()
	pair := &TokenPair{
		AccessTokenID:    generateTokenID(),
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshTokenID:   generateTokenID(),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}

	access := &AccessClaims{
		UserID:           user.ID.String(),
		Email:            user.Email,
		Role:             user.Role,
		SchoolID:         user.SchoolIDString(),
		RegisteredClaims: s.registered(pair.AccessTokenID, user.ID, now, pair.AccessExpiresAt),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := &RefreshClaims{
		UserID:           user.ID.String(),
		RegisteredClaims: s.registered(pair.RefreshTokenID, user.ID, now, pair.RefreshExpiresAt),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	pair.AccessToken = accessToken
	pair.RefreshToken = refreshToken
	return pair, nil
}

func (s *JWTService) registered(id string, userID uuid.UUID, now, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        id,
		Subject:   userID.String(),
		Issuer:    s.issuer,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

// VerifyAccess validates an access token and returns its claims.
func (s *JWTService) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *JWTService) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

type issuedClaims interface {
	jwt.Claims
	issuer() string
}

func (c *AccessClaims) issuer() string  { return c.Issuer }
func (c *RefreshClaims) issuer() string { return c.Issuer }

func (s *JWTService) parse(tokenString string, claims issuedClaims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return classifyTokenError(err)
	}
	if !token.Valid || claims.issuer() != s.issuer {
		return apperrors.ErrInvalidToken
	}
	return nil
}

// classifyTokenError reports expiry only when expiry is the sole failure, so a
// forged token that also happens to be expired is still reported as invalid.
func classifyTokenError(err error) error {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) && ve.Errors == jwt.ValidationErrorExpired {
		return apperrors.ErrExpiredToken.Wrap(err)
	}
	return apperrors.ErrInvalidToken.Wrap(err)
}

// generateTokenID generates a unique token ID (jti).
func generateTokenID() string {
	return uuid.New().String()
}
