package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/model"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "schoolhub-test",
	})
	require.NoError(t, err)
	return svc
}

func testUser() *model.User {
	school := uuid.New()
	return &model.User{
		ID:       uuid.New(),
		Email:    "alice@example.com",
		Role:     model.RoleTeacher,
		SchoolID: &school,
		IsActive: true,
	}
}

func TestNewJWTService_RequiresDistinctSecrets(t *testing.T) {
	_, err := NewJWTService(JWTConfig{AccessSecret: "same", RefreshSecret: "same"})
	assert.Error(t, err)

	_, err = NewJWTService(JWTConfig{AccessSecret: "", RefreshSecret: "refresh"})
	assert.Error(t, err)
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	svc := newTestJWTService(t)
	user := testUser()

	pair, err := svc.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessTokenID, pair.RefreshTokenID)

	access, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), access.UserID)
	assert.Equal(t, user.Email, access.Email)
	assert.Equal(t, user.Role, access.Role)
	assert.Equal(t, user.SchoolID.String(), access.SchoolID)
	assert.Equal(t, pair.AccessTokenID, access.ID)

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), refresh.UserID)
	assert.Equal(t, pair.RefreshTokenID, refresh.ID)
}

func TestJWTService_RefreshClaimsAreMinimal(t *testing.T) {
	svc := newTestJWTService(t)
	pair, err := svc.Issue(testUser())
	require.NoError(t, err)

	parsed, _, err := new(jwt.Parser).ParseUnverified(pair.RefreshToken, jwt.MapClaims{})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.NotContains(t, claims, "email")
	assert.NotContains(t, claims, "role")
	assert.NotContains(t, claims, "schoolId")
	assert.Contains(t, claims, "userId")
}

func TestJWTService_TokensAreNotInterchangeable(t *testing.T) {
	svc := newTestJWTService(t)
	pair, err := svc.Issue(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestJWTService_ExpiredIsDistinctFromInvalid(t *testing.T) {
	svc := newTestJWTService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	pair, err := svc.Issue(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidToken)

	// The refresh token (7d) is still valid.
	_, err = svc.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestJWTService_ExpiredAndForgedIsInvalid(t *testing.T) {
	svc := newTestJWTService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	pair, err := svc.Issue(testUser())
	require.NoError(t, err)

	other, err := NewJWTService(JWTConfig{
		AccessSecret:  "another-access-secret",
		RefreshSecret: "another-refresh-secret",
		Issuer:        "schoolhub-test",
	})
	require.NoError(t, err)

	_, err = other.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestJWTService_RejectsGarbageAndWrongIssuer(t *testing.T) {
	svc := newTestJWTService(t)

	_, err := svc.VerifyAccess("token.invalid.here")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	other, err := NewJWTService(JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		Issuer:        "someone-else",
	})
	require.NoError(t, err)
	pair, err := other.Issue(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	svc := newTestJWTService(t)
	claims := &AccessClaims{
		UserID: uuid.NewString(),
		Role:   model.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "schoolhub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(unsigned)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
