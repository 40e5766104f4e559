package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultsApplied() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := defaultsApplied()

	assert.Equal(t, "invoiceflow-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "invoiceflow", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, int64(25<<20), cfg.HTTP.MaxBodySize)
	assert.Equal(t, 2*time.Minute, cfg.Extraction.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Extraction.HintCacheTTL)

	assert.InDelta(t, 0.01, cfg.Reconciliation.RelativeTolerance, 1e-9)
	assert.InDelta(t, 0.01, cfg.Reconciliation.AbsoluteTolerance, 1e-9)
	assert.InDelta(t, 0.10, cfg.Reconciliation.PriceChangeThreshold, 1e-9)
	assert.InDelta(t, 0.80, cfg.Reconciliation.AutoMatchThreshold, 1e-9)

	assert.Empty(t, cfg.HTTP.CORSAllowOrigins, "no cross-origin access until configured")
}

func TestValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		require.NoError(t, defaultsApplied().validate())
	})

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := defaultsApplied()
		cfg.Database.MaxIdleConns = 50
		assert.Error(t, cfg.validate())
	})

	t.Run("tolerances are bounded", func(t *testing.T) {
		cfg := defaultsApplied()
		cfg.Reconciliation.RelativeTolerance = 1.5
		assert.Error(t, cfg.validate())

		cfg = defaultsApplied()
		cfg.Reconciliation.PriceChangeThreshold = -0.1
		assert.Error(t, cfg.validate())
	})

	t.Run("production demands credentials and TLS", func(t *testing.T) {
		cfg := defaultsApplied()
		cfg.App.Env = "production"
		assert.Error(t, cfg.validate(), "missing database password")

		cfg.Database.Password = "secret"
		assert.Error(t, cfg.validate(), "sslmode disable is refused")

		cfg.Database.SSLMode = "require"
		assert.NoError(t, cfg.validate())
	})

	t.Run("wildcard CORS origin is refused in production", func(t *testing.T) {
		cfg := defaultsApplied()
		cfg.App.Env = "production"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
		assert.Error(t, cfg.validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "invoiceflow",
		Password: "p@ss/word",
		DBName:   "invoiceflow",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word", "password must be escaped")
}
