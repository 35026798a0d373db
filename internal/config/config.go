package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const devJWTSecret = "dev-insecure-secret"

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	Env          string
	LogLevel     string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PasswordMinLength       int
	RatingOwnershipEnforced bool

	TokenSweepSchedule string
	CORSAllowedOrigins []string
	AuthRateLimit      float64
	AuthRateBurst      int

	S3 S3Config
}

// S3Config describes the object storage that holds recipe images.
// Storage is disabled when Bucket is empty.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether image storage has been configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from an optional .env file and environment
// variables, falling back to defaults.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	accessTTL, err := getDuration("ACCESS_TOKEN_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getDuration("REFRESH_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	minLen, err := getInt("PASSWORD_MIN_LENGTH", 8)
	if err != nil {
		return nil, err
	}
	if minLen < 1 {
		return nil, fmt.Errorf("PASSWORD_MIN_LENGTH must be positive, got %d", minLen)
	}
	enforced, err := getBool("RATING_OWNERSHIP_ENFORCED", true)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getFloat("AUTH_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	rateBurst, err := getInt("AUTH_RATE_BURST", 10)
	if err != nil {
		return nil, err
	}

	sweep := getEnv("TOKEN_SWEEP_SCHEDULE", "@hourly")
	if _, err := cron.ParseStandard(sweep); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_SWEEP_SCHEDULE %q: %w", sweep, err)
	}

	cfg := &Config{
		ServerPort:              port,
		DatabasePath:            getEnv("DATABASE_PATH", "./recipehub.db"),
		Env:                     getEnv("APP_ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		AccessTokenTTL:          accessTTL,
		RefreshTokenTTL:         refreshTTL,
		PasswordMinLength:       minLen,
		RatingOwnershipEnforced: enforced,
		TokenSweepSchedule:      sweep,
		CORSAllowedOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimit:           rateLimit,
		AuthRateBurst:           rateBurst,
		S3: S3Config{
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
