package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	// Hosts (host[:port]) allowed as CORS origins.
	CORSAllowedHosts []string

	DB       DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Checkout CheckoutConfig
	Cart     CartConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KafkaConfig configures the stock-change event stream. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers    []string
	StockTopic string
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// CheckoutConfig contains pricing and coupon tunables.
type CheckoutConfig struct {
	PreviewTimeout time.Duration
	CouponCacheTTL time.Duration
}

// CartConfig contains guest cart housekeeping settings.
type CartConfig struct {
	GuestTTL        time.Duration
	CleanupInterval time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedHosts = splitCSV(getEnv("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000"))

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Kafka (optional)
	cfg.Kafka = KafkaConfig{
		Brokers:    splitCSV(getEnv("KAFKA_BROKERS", "")),
		StockTopic: getEnv("KAFKA_STOCK_TOPIC", "catalog.variant-stock"),
	}

	var err error
	if cfg.Checkout.PreviewTimeout, err = parseDurationEnv("CHECKOUT_PREVIEW_TIMEOUT", "3s"); err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_PREVIEW_TIMEOUT: %w", err)
	}
	if cfg.Checkout.CouponCacheTTL, err = parseDurationEnv("COUPON_CACHE_TTL", "60s"); err != nil {
		return nil, fmt.Errorf("invalid COUPON_CACHE_TTL: %w", err)
	}
	if cfg.Cart.GuestTTL, err = parseDurationEnv("CART_GUEST_TTL", "720h"); err != nil {
		return nil, fmt.Errorf("invalid CART_GUEST_TTL: %w", err)
	}
	if cfg.Cart.CleanupInterval, err = parseDurationEnv("CART_CLEANUP_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid CART_CLEANUP_INTERVAL: %w", err)
	}

	// Basic validation for DB parameters.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
