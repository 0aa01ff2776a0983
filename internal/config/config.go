package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the leadscore application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Checkout  CheckoutConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete fields when set. Leave both
	// empty (Enabled=false) to run on the in-memory store.
	Enabled  bool
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// CheckoutConfig configures the hosted checkout the funnel redirects to.
type CheckoutConfig struct {
	BaseURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("LEADSCORE_HTTP_ADDR", ":8080"),
			Env:             getEnv("LEADSCORE_ENV", "development"),
			ShutdownTimeout: getDurationEnv("LEADSCORE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("LEADSCORE_DB_ENABLED", true),
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("LEADSCORE_DB_HOST", "localhost"),
			Port:     getIntEnv("LEADSCORE_DB_PORT", 5432),
			User:     getEnv("LEADSCORE_DB_USER", "leadscore"),
			Password: getEnv("LEADSCORE_DB_PASSWORD", "leadscore_secret"),
			DBName:   getEnv("LEADSCORE_DB_NAME", "leadscore"),
			SSLMode:  getEnv("LEADSCORE_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("LEADSCORE_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("LEADSCORE_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("LEADSCORE_REDIS_ENABLED", false),
			Addr:     getEnv("LEADSCORE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("LEADSCORE_REDIS_PASSWORD", ""),
			DB:       getIntEnv("LEADSCORE_REDIS_DB", 0),
			CacheTTL: getDurationEnv("LEADSCORE_REDIS_CACHE_TTL", 60*time.Second),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("LEADSCORE_AUTH_ENABLED", false),
			MasterKey: getEnv("LEADSCORE_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("LEADSCORE_AUTH_SKIP_PATHS", []string{
				"/health", "/metrics",
				"/api/track-click", "/api/checkout-intent",
				"/webhook/hotmart", "/survey", "/webhook/formulario-obrigado",
			}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("LEADSCORE_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("LEADSCORE_RATE_LIMIT_RPS", 200),
			Burst:   getIntEnv("LEADSCORE_RATE_LIMIT_BURST", 50),
		},
		Log: LogConfig{
			Level:  getEnv("LEADSCORE_LOG_LEVEL", "info"),
			Format: getEnv("LEADSCORE_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("LEADSCORE_METRICS_ENABLED", true),
			Path:    getEnv("LEADSCORE_METRICS_PATH", "/metrics"),
		},
		Checkout: CheckoutConfig{
			BaseURL: getEnv("LEADSCORE_CHECKOUT_BASE_URL", "https://pay.hotmart.com/D100067457H"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("LEADSCORE_API_KEY_MASTER is required when auth is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
