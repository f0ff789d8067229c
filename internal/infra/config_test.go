package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.SessionUpdateSeconds)
	assert.False(t, cfg.DisableAutoSession)
	assert.Equal(t, "rotation", cfg.SelectionStrategy)
	assert.Equal(t, "testdata/offers", cfg.OffersDir)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_UPDATE_SECONDS", "5")
	t.Setenv("DISABLE_AUTO_SESSION", "true")
	t.Setenv("SELECTION_STRATEGY", "random")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/p.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.SessionInterval())
	assert.True(t, cfg.DisableAutoSession)
	assert.Equal(t, "random", cfg.SelectionStrategy)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/p.db", cfg.SQLitePath)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SessionUpdateSeconds: 30,
			StoreDriver:          StoreMemory,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"zero interval", func(c *Config) { c.SessionUpdateSeconds = 0 }, "SESSION_UPDATE_SECONDS"},
		{"negative interval", func(c *Config) { c.SessionUpdateSeconds = -1 }, "SESSION_UPDATE_SECONDS"},
		{"unknown store driver", func(c *Config) { c.StoreDriver = "redis" }, "STORE_DRIVER"},
		{"postgres without connection settings", func(c *Config) {
			c.StoreDriver = StorePostgres
		}, "DATABASE_URL"},
		{"postgres with database url", func(c *Config) {
			c.StoreDriver = StorePostgres
			c.DatabaseURL = "postgres://u:p@h/d"
		}, ""},
		{"postgres with pg settings", func(c *Config) {
			c.StoreDriver = StorePostgres
			c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase = "u", "p", "h", 5432, "d"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := &Config{
		PGUser: "monetize", PGPassword: "secret", PGHost: "db", PGPort: 5433, PGDatabase: "offers",
	}
	assert.Equal(t, "postgres://monetize:secret@db:5433/offers?sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://u:p@elsewhere/x"
	assert.Equal(t, "postgres://u:p@elsewhere/x", cfg.DSN(), "DATABASE_URL wins")
}
