package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr() != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.Server.Addr())
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected default token ttl: %s", cfg.Auth.TokenTTL)
	}
	if !cfg.AutoCompletePayments {
		t.Fatalf("auto-complete should default on")
	}
	if cfg.RateLimit.RequestsPerSecond != 20 {
		t.Fatalf("unexpected default rps: %d", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("AUTO_COMPLETE_PAYMENTS", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr())
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("unexpected token ttl: %s", cfg.Auth.TokenTTL)
	}
	if cfg.AutoCompletePayments {
		t.Fatalf("auto-complete should be off")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins not parsed: %v", cfg.AllowedOrigins)
	}
}
