package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig(t *testing.T) {
	t.Run("Should use defaults without a file or environment", func(t *testing.T) {
		// Act
		cfg, err := LoadConfig()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.ServerAddress)
		assert.Zero(t, cfg.CacheTTL, "the environment decides the cache lifetime")
		assert.Equal(t, "global_market_data", cfg.CacheKey)
		assert.True(t, cfg.EnableCORS)
	})

	t.Run("Should let the environment override the YAML file", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "tokens_table: from-file\ncache_ttl: 2h\nlog_level: debug\nallowed_origins: [\"https://a.example\"]\n")
		t.Setenv("CONFIG_FILE", path)
		t.Setenv("TOKENS_TABLE", "from-env")
		t.Setenv("STORE_TIMEOUT", "15")

		// Act
		cfg, err := LoadConfig()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.TokensTable)
		assert.Equal(t, 2*time.Hour, cfg.CacheTTL)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 15*time.Second, cfg.StoreTimeout)
		assert.Equal(t, []string{"https://a.example"}, cfg.AllowedOrigins)
		assert.Equal(t, path, cfg.ConfigFile)
	})

	t.Run("Should fail on an unreadable file", func(t *testing.T) {
		// Arrange
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

		// Act
		_, err := LoadConfig()

		// Assert
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Should require table names", func(c *Config) { c.TokensTable = "" }},
		{"Should reject a negative TTL", func(c *Config) { c.CacheTTL = -time.Second }},
		{"Should require an OTLP endpoint for tracing", func(c *Config) { c.EnableTracing = true }},
		{"Should require an API key in production", func(c *Config) { c.Environment = "production" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := DefaultConfig()
			tt.mutate(cfg)

			// Act & Assert
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("A_DURATION", "90s")
	t.Setenv("A_SECONDS", "45")
	t.Setenv("A_JUNK", "soon")

	assert.Equal(t, 90*time.Second, getEnvDuration("A_DURATION", time.Minute))
	assert.Equal(t, 45*time.Second, getEnvDuration("A_SECONDS", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("A_JUNK", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("A_MISSING", time.Minute))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\n")
	cfg := DefaultConfig()
	require.NoError(t, LoadFile(path, cfg))

	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	reloaded := make(chan *Config, 1)
	w.Subscribe(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	// Act
	writeFile(t, path, "log_level: debug\n")

	// Assert
	select {
	case next := <-reloaded:
		assert.Equal(t, "debug", next.LogLevel)
		assert.Equal(t, "debug", w.Current().LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
}

func TestWatcher_KeepsCurrentOnInvalidFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\n")
	cfg := DefaultConfig()
	require.NoError(t, LoadFile(path, cfg))
	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)

	// Act
	writeFile(t, path, "cache_ttl: -1h\n")
	w.reload()

	// Assert
	assert.Same(t, cfg, w.Current())
}

func TestNewWatcher_RequiresFile(t *testing.T) {
	_, err := NewWatcher(DefaultConfig(), zap.NewNop())
	assert.Error(t, err)
}
