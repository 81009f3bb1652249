package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.JWT.Issuer != "opsboard" {
		t.Fatalf("unexpected issuer: %s", cfg.JWT.Issuer)
	}
	if cfg.JWT.Audience != "management-platform" {
		t.Fatalf("unexpected audience: %s", cfg.JWT.Audience)
	}
	if cfg.JWT.TTL != time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.JWT.TTL)
	}
	if cfg.JWT.Leeway != 60*time.Second {
		t.Fatalf("unexpected leeway: %s", cfg.JWT.Leeway)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("OPSBOARD_HTTP_ADDR", ":9090")
	t.Setenv("OPSBOARD_JWT_SECRET", "test-secret")
	t.Setenv("OPSBOARD_JWT_TTL", "30m")
	t.Setenv("OPSBOARD_PG_DSN", "postgres://localhost/opsboard")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.JWT.Secret != "test-secret" {
		t.Fatalf("secret not loaded")
	}
	if cfg.JWT.TTL != 30*time.Minute {
		t.Fatalf("unexpected ttl: %s", cfg.JWT.TTL)
	}
	if cfg.Database.DSN != "postgres://localhost/opsboard" {
		t.Fatalf("dsn not loaded")
	}
	if err := cfg.ValidateAuth(); err != nil {
		t.Fatalf("ValidateAuth: %v", err)
	}
}

func TestValidateAuthMissingSecret(t *testing.T) {
	cfg := &Config{JWT: JWT{TTL: time.Hour}}
	if err := cfg.ValidateAuth(); !errors.Is(err, ErrAuthNotConfigured) {
		t.Fatalf("expected ErrAuthNotConfigured, got %v", err)
	}
}
