package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"schoolhub/docs"
	"schoolhub/internal/auth"
	"schoolhub/internal/config"
	"schoolhub/internal/db"
	"schoolhub/internal/handler"
	"schoolhub/internal/logger"
	authmw "schoolhub/internal/middleware"
	"schoolhub/internal/repository"
	"schoolhub/internal/router"
	"schoolhub/internal/service"
)

// @title SchoolHub Auth API
// @version 1.0
// @description Authentication and role-based authorization for the school management platform.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logg := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	gormDB, err := db.NewMySQL(cfg.MySQL.DSN)
	if err != nil {
		logg.Fatal().Err(err).Msg("database init")
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		logg.Fatal().Err(err).Msg("database migrations")
	}

	store, closeStore := newTokenBackend(cfg, logg)
	defer closeStore()

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	schoolRepo := repository.NewSchoolRepository(gormDB)

	// Auth components
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		logg.Fatal().Err(err).Msg("jwt service")
	}
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logg.Fatal().Err(err).Msg("password hasher")
	}
	tokenStore := auth.NewTokenStore(store)

	// Services
	authService := service.NewAuthService(service.AuthDeps{
		Users:         userRepo,
		Schools:       schoolRepo,
		JWT:           jwtService,
		Tokens:        tokenStore,
		Hasher:        hasher,
		Notifier:      service.NewLogResetNotifier(logg, cfg.Auth.LogResetTokens),
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
		Logger:        logg,
	})
	userService := service.NewUserService(userRepo, logg)

	e := echo.New()
	router.Register(e, cfg, logg, authmw.NewAuthenticator(jwtService, tokenStore, userRepo, logg), router.Handlers{
		Auth:  handler.NewAuthHandler(authService),
		Users: handler.NewUserHandler(userService),
	})

	if cfg.HTTP.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.HTTP.SwaggerHost
	}
	logg.Info().Str("url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html").Msg("swagger documentation")

	go func() {
		logg.Info().Str("addr", cfg.HTTP.Addr()).Str("env", cfg.App.Env).Msg("starting server")
		if err := e.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal().Err(err).Msg("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Error().Err(err).Msg("server shutdown")
	}
	logg.Info().Msg("server stopped")
}
