// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// RateLimitConfig holds per-client request budgets.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig

	// DatabaseURL selects the postgres store when set; the in-memory store
	// is used otherwise.
	DatabaseURL string

	// AllowedOrigins is the CORS allowlist for browser clients.
	AllowedOrigins []string

	// AutoCompletePayments marks purchases COMPLETED at creation. This stands
	// in for a payment gateway confirmation callback; disable it to hold new
	// purchases in PENDING until an operator confirms them.
	AutoCompletePayments bool

	// AuditLogPath appends admin audit entries as JSONL when set.
	AuditLogPath string
}

// Load reads configuration from the environment, consulting a .env file if
// one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         envString("SERVER_HOST", ""),
			Port:         envInt("SERVER_PORT", 8080),
			ReadTimeout:  envDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: envDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  envDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  envDuration("JWT_EXPIRES_IN", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
			Output: envString("LOG_OUTPUT", "stdout"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envInt("RATE_LIMIT_RPS", 20),
			Burst:             envInt("RATE_LIMIT_BURST", 40),
		},
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		AllowedOrigins:       envList("ALLOWED_ORIGINS"),
		AutoCompletePayments: envBool("AUTO_COMPLETE_PAYMENTS", true),
		AuditLogPath:         os.Getenv("AUDIT_LOG_PATH"),
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT %d out of range", cfg.Server.Port)
	}
	return cfg, nil
}

// Addr returns the host:port the server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
