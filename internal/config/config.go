package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nekogravitycat/hotel-booking-backend/internal/reservation"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv            string
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	DBMaxConns        int
	DBAutoMigrate     bool
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	LogLevel  string
	LogFormat string

	// Redis is optional. An empty address disables the availability cache and
	// falls back to the in-process rate limiter.
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	AvailabilityCacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	// AMQPURL is optional. Empty disables event publishing.
	AMQPURL string

	Reservation ReservationConfig
}

// ReservationConfig tunes the reservation write path.
type ReservationConfig struct {
	Isolation      string
	LockTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current process environment only.
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.IsProduction = cfg.AppEnv == PROD_STRING
	if cfg.IsProduction && strings.TrimSpace(cfg.ProdOrigins) == "" {
		return nil, fmt.Errorf("PROD_ORIGINS is required when APP_ENV=%s", PROD_STRING)
	}

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	cfg.DBMaxConns, err = getEnvAsInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: must be at least 1")
	}

	cfg.DBAutoMigrate, err = getEnvAsBool("DB_AUTO_MIGRATE", true)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_TTL: %w", err)
	}

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: expected json or console", cfg.LogFormat)
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.AvailabilityCacheTTL, err = getEnvAsDuration("AVAILABILITY_CACHE_TTL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid AVAILABILITY_CACHE_TTL: %w", err)
	}

	cfg.RateLimitRPS, err = getEnvAsFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitBurst, err = getEnvAsInt("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg.AMQPURL = getEnv("AMQP_URL", "")

	cfg.Reservation.Isolation = strings.ToLower(getEnv("RESERVATION_ISOLATION", reservation.IsolationLock))
	if cfg.Reservation.Isolation != reservation.IsolationLock && cfg.Reservation.Isolation != reservation.IsolationSerializable {
		return nil, fmt.Errorf("invalid RESERVATION_ISOLATION %q: expected %s or %s",
			cfg.Reservation.Isolation, reservation.IsolationLock, reservation.IsolationSerializable)
	}
	cfg.Reservation.LockTimeout, err = getEnvAsDuration("RESERVATION_LOCK_TIMEOUT", reservation.DefaultLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_LOCK_TIMEOUT: %w", err)
	}
	// lock_timeout is set in whole milliseconds and 0 means wait forever.
	if cfg.Reservation.LockTimeout < time.Millisecond {
		return nil, fmt.Errorf("invalid RESERVATION_LOCK_TIMEOUT: must be at least 1ms")
	}
	cfg.Reservation.WriteTimeout, err = getEnvAsDuration("RESERVATION_WRITE_TIMEOUT", reservation.DefaultWriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_WRITE_TIMEOUT: %w", err)
	}
	if cfg.Reservation.WriteTimeout <= cfg.Reservation.LockTimeout {
		return nil, fmt.Errorf("invalid RESERVATION_WRITE_TIMEOUT: must exceed RESERVATION_LOCK_TIMEOUT (%s)", cfg.Reservation.LockTimeout)
	}
	cfg.Reservation.MaxRetries, err = getEnvAsInt("RESERVATION_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_MAX_RETRIES: %w", err)
	}
	if cfg.Reservation.MaxRetries < 0 {
		return nil, fmt.Errorf("invalid RESERVATION_MAX_RETRIES: must not be negative")
	}
	cfg.Reservation.RetryBaseDelay, err = getEnvAsDuration("RESERVATION_RETRY_BASE_DELAY", 25*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_RETRY_BASE_DELAY: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid number: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}

	return val, nil
}
