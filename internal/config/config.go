package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application level configuration loaded from the environment.
type Config struct {
	App   AppConfig
	HTTP  HTTPConfig
	MySQL MySQLConfig
	Redis RedisConfig
	JWT   JWTConfig
	Auth  AuthConfig
	Seed  SeedConfig
}

// AppConfig general application settings.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// IsProduction reports whether the app runs in production mode.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// HTTPConfig server settings.
type HTTPConfig struct {
	Port           string
	RequestTimeout time.Duration
	SwaggerHost    string
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return ":" + c.Port
}

// MySQLConfig credential store settings.
type MySQLConfig struct {
	DSN string
}

// RedisConfig token store settings. An empty Addr selects the in-process store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig token signing settings.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AuthConfig password and reset settings.
type AuthConfig struct {
	BcryptCost    int
	ResetTokenTTL time.Duration
	RateLimit     float64 // requests per second per client IP on /auth, 0 disables

	// LogResetTokens writes reset tokens to the log. Development only.
	LogResetTokens bool
}

// SeedConfig bootstrap super admin used by cmd/seed.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	SchoolName    string
}

var (
	// ErrMissingSecret is returned when a signing secret is not configured.
	ErrMissingSecret = errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	// ErrSharedSecret is returned when access and refresh secrets are equal.
	ErrSharedSecret = errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	// ErrResetTokenLogging is returned when reset token logging is enabled in production.
	ErrResetTokenLogging = errors.New("AUTH_LOG_RESET_TOKENS must not be enabled in production")
)

// Load reads configuration from the environment (and an optional .env file).
// Missing or shared signing secrets are a startup error, never a silent default.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Port:           v.GetString("SERVER_PORT"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			SwaggerHost:    v.GetString("SWAGGER_HOST"),
		},
		MySQL: MySQLConfig{
			DSN: v.GetString("MYSQL_DSN"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			AccessTTL:     v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL:    v.GetDuration("JWT_REFRESH_TTL"),
			Issuer:        v.GetString("JWT_ISSUER"),
		},
		Auth: AuthConfig{
			BcryptCost:     v.GetInt("BCRYPT_COST"),
			ResetTokenTTL:  v.GetDuration("RESET_TOKEN_TTL"),
			RateLimit:      v.GetFloat64("AUTH_RATE_LIMIT"),
			LogResetTokens: v.GetBool("AUTH_LOG_RESET_TOKENS"),
		},
		Seed: SeedConfig{
			AdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
			AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
			AdminName:     v.GetString("SEED_ADMIN_NAME"),
			SchoolName:    v.GetString("SEED_SCHOOL_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that must never fall back to a default.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return ErrMissingSecret
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return ErrSharedSecret
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive (access %s, refresh %s)", c.JWT.AccessTTL, c.JWT.RefreshTTL)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.Auth.LogResetTokens && c.App.IsProduction() {
		return ErrResetTokenLogging
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL must be positive, got %s", c.Auth.ResetTokenTTL)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "schoolhub")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", 15*time.Second)
	v.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/schoolhub?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_TTL", time.Hour)
	v.SetDefault("JWT_REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("JWT_ISSUER", "schoolhub")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RESET_TOKEN_TTL", time.Hour)
	v.SetDefault("AUTH_RATE_LIMIT", 10)
	v.SetDefault("AUTH_LOG_RESET_TOKENS", false)
	v.SetDefault("SEED_ADMIN_NAME", "Super Admin")
	v.SetDefault("SEED_SCHOOL_NAME", "Default School")
}
