package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"schoolhub/internal/auth"
	"schoolhub/internal/config"
	"schoolhub/internal/db"
	"schoolhub/internal/logger"
	"schoolhub/internal/model"
	"schoolhub/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logg := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	if cfg.Seed.AdminEmail == "" || cfg.Seed.AdminPassword == "" {
		logg.Fatal().Msg("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}

	gormDB, err := db.NewMySQL(cfg.MySQL.DSN)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		logg.Fatal().Err(err).Msg("failed to run migrations")
	}
	logg.Info().Msg("database migrations completed")

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logg.Fatal().Err(err).Msg("password hasher")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s := seeder{
		schools: repository.NewSchoolRepository(gormDB),
		users:   repository.NewUserRepository(gormDB),
		hasher:  hasher,
		logger:  logg,
	}
	if err := s.run(ctx, cfg.Seed); err != nil {
		logg.Fatal().Err(err).Msg("seed failed")
	}
	logg.Info().Msg("seed completed")
}

type seeder struct {
	schools repository.SchoolRepository
	users   repository.UserRepository
	hasher  *auth.PasswordHasher
	logger  zerolog.Logger
}

// run creates the default school and the bootstrap super admin. It is safe to
// run repeatedly.
func (s seeder) run(ctx context.Context, cfg config.SeedConfig) error {
	school, err := s.schools.FindByNameOrCreate(ctx, &model.School{Name: cfg.SchoolName, IsActive: true})
	if err != nil {
		return err
	}
	s.logger.Info().Str("school_id", school.ID.String()).Str("name", school.Name).Msg("default school ready")

	existing, err := s.users.FindByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		s.logger.Info().Str("user_id", existing.ID.String()).Msg("super admin already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		FullName:     cfg.AdminName,
		Role:         model.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", admin.ID.String()).Msg("super admin created")
	return nil
}
