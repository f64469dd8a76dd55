package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"schoolhub/internal/auth"
	"schoolhub/internal/config"
	"schoolhub/internal/handler"
	authmw "schoolhub/internal/middleware"
	"schoolhub/internal/model"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth  *handler.AuthHandler
	Users *handler.UserHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, logger zerolog.Logger, authn *authmw.Authenticator, h Handlers) {
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewErrorHandler(logger, cfg.App.IsProduction())

	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	if cfg.HTTP.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeout(cfg.HTTP.RequestTimeout))
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	if cfg.Auth.RateLimit > 0 {
		authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Auth.RateLimit))))
	}
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
	authGroup.POST("/reset-password", h.Auth.ResetPassword)
	authGroup.GET("/session", h.Auth.Session, authn.Optional())

	// Secured routes (require a live, active user)
	authGroup.POST("/logout", h.Auth.Logout, authn.Authenticate())
	authGroup.GET("/profile", h.Auth.Profile, authn.Authenticate())
	authGroup.PUT("/change-password", h.Auth.ChangePassword, authn.Authenticate())

	users := api.Group("/users", authn.Authenticate())
	manageUsers := authmw.RequirePermission(auth.PermissionManageUsers)
	users.GET("", h.Users.ListUsers, manageUsers)
	users.GET("/:id", h.Users.GetUser, manageUsers)
	users.PATCH("/:id/status", h.Users.UpdateStatus, manageUsers)
	users.DELETE("/:id", h.Users.DeleteUser, authmw.RequireRole(model.RoleSuperAdmin, model.RoleSchoolAdmin))
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("user_agent", v.UserAgent).
				Msg("request")
			return nil
		},
	})
}
