package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Purchase store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all SDK configuration parsed from environment variables.
type Config struct {
	// Session
	SessionUpdateSeconds int  `env:"SESSION_UPDATE_SECONDS" envDefault:"30"`
	DisableAutoSession   bool `env:"DISABLE_AUTO_SESSION" envDefault:"false"`

	// Offer selection
	SelectionStrategy string `env:"SELECTION_STRATEGY" envDefault:"rotation"`

	// Offer source: static fixtures by default, HTTP backend when set.
	OffersDir      string `env:"OFFERS_DIR" envDefault:"testdata/offers"`
	OfferServerURL string `env:"OFFER_SERVER_URL"`

	// Purchase store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"purchases.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"monetize"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"monetize"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"monetize"`

	// Stub offer server
	StubPort int `env:"STUB_PORT" envDefault:"5000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.SessionUpdateSeconds <= 0 {
		return fmt.Errorf("SESSION_UPDATE_SECONDS must be positive, got %d", c.SessionUpdateSeconds)
	}
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (expected memory, sqlite or postgres)", c.StoreDriver)
	}
	if c.StoreDriver == StorePostgres && c.DatabaseURL == "" &&
		(c.PGHost == "" || c.PGUser == "" || c.PGDatabase == "") {
		return fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL or PG* settings")
	}
	return nil
}

// SessionInterval returns the session update period.
func (c *Config) SessionInterval() time.Duration {
	return time.Duration(c.SessionUpdateSeconds) * time.Second
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
