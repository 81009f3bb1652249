package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envPrefix namespaces every variable, e.g. OPSBOARD_JWT_SECRET.
const envPrefix = "OPSBOARD_"

// ErrAuthNotConfigured reports missing token key material. The process may
// still serve unauthenticated routes, but must refuse authentication traffic.
var ErrAuthNotConfigured = errors.New("config: jwt secret is not set")

// Config contains server configuration parameters.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR"`

	Database Database  `envPrefix:"PG_"`
	JWT      JWT       `envPrefix:"JWT_"`
	Rate     RateLimit `envPrefix:"RATE_"`

	// EventBuffer bounds the token issuance notification channel.
	EventBuffer int `env:"EVENT_BUFFER" envDefault:"256"`
	// VerifyConcurrency bounds concurrent password hash computations.
	VerifyConcurrency int64 `env:"VERIFY_CONCURRENCY" envDefault:"4"`
}

// Database contains connection pool parameters.
type Database struct {
	DSN          string        `env:"DSN"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	ConnLifetime time.Duration `env:"CONN_LIFETIME" envDefault:"30m"`
}

// JWT contains token issuance and validation policy.
type JWT struct {
	Secret   string        `env:"SECRET"`
	Issuer   string        `env:"ISSUER" envDefault:"opsboard"`
	Audience string        `env:"AUDIENCE" envDefault:"management-platform"`
	TTL      time.Duration `env:"TTL" envDefault:"1h"`
	Leeway   time.Duration `env:"LEEWAY" envDefault:"60s"`
}

// RateLimit contains the per-IP token bucket parameters.
type RateLimit struct {
	PerSecond int `env:"PER_SECOND" envDefault:"20"`
	Burst     int `env:"BURST" envDefault:"40"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// ValidateAuth checks the startup-fatal auth preconditions.
func (c *Config) ValidateAuth() error {
	if c.JWT.Secret == "" {
		return ErrAuthNotConfigured
	}
	if c.JWT.TTL <= 0 {
		return errors.New("config: jwt ttl must be positive")
	}
	return nil
}
