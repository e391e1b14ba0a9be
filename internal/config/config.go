package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/puremall/storefront/pkg/config"
)

// Config holds all configuration for the storefront session service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Mall backend
	BackendBaseURL   string `env:"MALL_BACKEND_URL" envDefault:"http://localhost:3000/api"`
	BackendTimeoutMS int    `env:"MALL_BACKEND_TIMEOUT_MS" envDefault:"10000"`

	// Redis session snapshots
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	SnapshotTTLHours int    `env:"SNAPSHOT_TTL_HOURS" envDefault:"168"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Session tokens
	JWTSecret  string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	SessionTTL string `env:"SESSION_TTL" envDefault:"24h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.BackendBaseURL == "" {
		return fmt.Errorf("mall backend URL must not be empty")
	}
	if _, err := time.ParseDuration(c.SessionTTL); err != nil {
		return fmt.Errorf("invalid session TTL %q: %w", c.SessionTTL, err)
	}
	return nil
}

// BackendTimeout returns the mall backend request timeout.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutMS) * time.Millisecond
}

// SnapshotTTL returns the lifetime of persisted session snapshots.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

// SessionExpiry returns the parsed session token lifetime.
func (c *Config) SessionExpiry() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
