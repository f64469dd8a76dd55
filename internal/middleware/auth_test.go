package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"schoolhub/internal/auth"
	"schoolhub/internal/cache"
	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/logger"
	"schoolhub/internal/model"
)

type mockUserLookup struct {
	mock.Mock
}

func (m *mockUserLookup) FindByIDWithoutSecrets(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type fixture struct {
	e      *echo.Echo
	jwt    *auth.JWTService
	tokens *auth.TokenStore
	users  *mockUserLookup
	authn  *Authenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "schoolhub-test",
	})
	require.NoError(t, err)

	f := &fixture{
		e:      echo.New(),
		jwt:    jwtService,
		tokens: auth.NewTokenStore(cache.NewMemory()),
		users:  new(mockUserLookup),
	}
	f.authn = NewAuthenticator(f.jwt, f.tokens, f.users, logger.Nop())
	return f
}

func (f *fixture) context(token string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return f.e.NewContext(req, rec), rec
}

func (f *fixture) issue(t *testing.T, user *model.User) *auth.TokenPair {
	t.Helper()
	pair, err := f.jwt.Issue(user)
	require.NoError(t, err)
	return pair
}

func activeUser(role model.Role) *model.User {
	return &model.User{ID: uuid.New(), Email: "alice@example.com", Role: role, IsActive: true}
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestAuthenticate_AttachesLiveUser(t *testing.T) {
	f := newFixture(t)
	user := activeUser(model.RoleTeacher)
	pair := f.issue(t, user)
	f.users.On("FindByIDWithoutSecrets", mock.Anything, user.ID).Return(user, nil)

	c, rec := f.context(pair.AccessToken)
	var seen *model.User
	err := f.authn.Authenticate()(func(c echo.Context) error {
		seen, _ = UserFromContext(c)
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		assert.Equal(t, pair.AccessTokenID, claims.ID)
		return okHandler(c)
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestAuthenticate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, f *fixture) string
		expected error
	}{
		{
			name:     "missing token",
			setup:    func(t *testing.T, f *fixture) string { return "" },
			expected: apperrors.ErrMissingToken,
		},
		{
			name:     "malformed token",
			setup:    func(t *testing.T, f *fixture) string { return "not.a.jwt" },
			expected: apperrors.ErrInvalidToken,
		},
		{
			name: "refresh token used as access token",
			setup: func(t *testing.T, f *fixture) string {
				return f.issue(t, activeUser(model.RoleTeacher)).RefreshToken
			},
			expected: apperrors.ErrInvalidToken,
		},
		{
			name: "revoked token",
			setup: func(t *testing.T, f *fixture) string {
				pair := f.issue(t, activeUser(model.RoleTeacher))
				require.NoError(t, f.tokens.RevokeAccessToken(context.Background(), pair.AccessTokenID, time.Minute))
				return pair.AccessToken
			},
			expected: apperrors.ErrRevokedToken,
		},
		{
			name: "deleted user",
			setup: func(t *testing.T, f *fixture) string {
				user := activeUser(model.RoleTeacher)
				f.users.On("FindByIDWithoutSecrets", mock.Anything, user.ID).Return(nil, gorm.ErrRecordNotFound)
				return f.issue(t, user).AccessToken
			},
			expected: apperrors.ErrUserNotFound,
		},
		{
			name: "deactivated after issue",
			setup: func(t *testing.T, f *fixture) string {
				user := activeUser(model.RoleTeacher)
				pair := f.issue(t, user)
				deactivated := *user
				deactivated.IsActive = false
				f.users.On("FindByIDWithoutSecrets", mock.Anything, user.ID).Return(&deactivated, nil)
				return pair.AccessToken
			},
			expected: apperrors.ErrAccountDeactivated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			token := tt.setup(t, f)
			c, _ := f.context(token)

			called := false
			err := f.authn.Authenticate()(func(c echo.Context) error {
				called = true
				return nil
			})(c)

			assert.False(t, called)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, http.StatusUnauthorized, apperrors.MapErrorToHTTP(err).StatusCode)
		})
	}
}

func TestAuthenticate_ExpiredIsDistinct(t *testing.T) {
	f := newFixture(t)
	issued := time.Now().Add(-2 * time.Hour)
	claims := &auth.AccessClaims{
		UserID: uuid.NewString(),
		Email:  "alice@example.com",
		Role:   model.RoleTeacher,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "schoolhub-test",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	c, _ := f.context(token)
	err = f.authn.Authenticate()(okHandler)(c)

	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidToken)
	assert.Equal(t, http.StatusUnauthorized, apperrors.MapErrorToHTTP(err).StatusCode)
}

func TestAuthenticate_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	user := activeUser(model.RoleTeacher)
	pair := f.issue(t, user)
	f.users.On("FindByIDWithoutSecrets", mock.Anything, user.ID).Return(nil, errors.New("db down"))

	c, _ := f.context(pair.AccessToken)
	err := f.authn.Authenticate()(okHandler)(c)

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.MapErrorToHTTP(err).StatusCode)
}

func TestOptional(t *testing.T) {
	f := newFixture(t)
	user := activeUser(model.RoleStudent)
	pair := f.issue(t, user)
	f.users.On("FindByIDWithoutSecrets", mock.Anything, user.ID).Return(user, nil)

	for name, token := range map[string]string{"anonymous": "", "garbage": "garbage"} {
		t.Run(name, func(t *testing.T) {
			c, rec := f.context(token)
			err := f.authn.Optional()(func(c echo.Context) error {
				_, ok := UserFromContext(c)
				assert.False(t, ok)
				return okHandler(c)
			})(c)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	t.Run("authenticated", func(t *testing.T) {
		c, _ := f.context(pair.AccessToken)
		err := f.authn.Optional()(func(c echo.Context) error {
			got, ok := UserFromContext(c)
			require.True(t, ok)
			assert.Equal(t, user.ID, got.ID)
			return nil
		})(c)
		require.NoError(t, err)
	})
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		role    model.Role
		allowed bool
	}{
		{model.RoleSuperAdmin, true},
		{model.RoleSchoolAdmin, true},
		{model.RoleTeacher, false},
		{model.RoleStudent, false},
		{model.RoleParent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users", nil), httptest.NewRecorder())
			c.Set(ContextKeyUser, activeUser(tt.role))

			err := RequirePermission(auth.PermissionManageUsers)(okHandler)(c)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)
				assert.Equal(t, http.StatusForbidden, apperrors.MapErrorToHTTP(err).StatusCode)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	gate := RequireRole(model.RoleSuperAdmin, model.RoleSchoolAdmin)

	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/users/1", nil), httptest.NewRecorder())
	c.Set(ContextKeyUser, activeUser(model.RoleSchoolAdmin))
	assert.NoError(t, gate(okHandler)(c))

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/users/1", nil), httptest.NewRecorder())
	c.Set(ContextKeyUser, activeUser(model.RoleParent))
	assert.ErrorIs(t, gate(okHandler)(c), apperrors.ErrInsufficientPermissions)

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/users/1", nil), httptest.NewRecorder())
	assert.ErrorIs(t, gate(okHandler)(c), apperrors.ErrMissingToken)
}
