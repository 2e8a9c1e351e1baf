package di

import (
	"testing"
	"time"

	"liberandum-backend/application/market"
	"liberandum-backend/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestProvideLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run("Should parse "+tt.in, func(t *testing.T) {
			// Arrange
			cfg := config.DefaultConfig()
			cfg.LogLevel = tt.in

			// Act
			level := ProvideLogLevel(cfg)

			// Assert
			assert.Equal(t, tt.want, level.Level())
		})
	}
}

func TestProvideDomainConfig(t *testing.T) {
	t.Run("Should let an explicit TTL override the environment", func(t *testing.T) {
		// Arrange
		cfg := config.DefaultConfig()
		cfg.Environment = "production"
		cfg.CacheTTL = 3 * time.Hour

		// Act
		domain, err := ProvideDomainConfig(cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 3*time.Hour, domain.CacheTTL)
		assert.Equal(t, 250, domain.MaxPageSize)
	})

	t.Run("Should keep the environment TTL when none is configured", func(t *testing.T) {
		// Arrange
		dev := config.DefaultConfig()
		prod := config.DefaultConfig()
		prod.Environment = "production"

		// Act
		devDomain, devErr := ProvideDomainConfig(dev)
		prodDomain, prodErr := ProvideDomainConfig(prod)

		// Assert
		require.NoError(t, devErr)
		require.NoError(t, prodErr)
		assert.Equal(t, 5*time.Minute, devDomain.CacheTTL)
		assert.Equal(t, time.Hour, prodDomain.CacheTTL)
	})

	t.Run("Should bound the snapshot fetch by the upstream timeout", func(t *testing.T) {
		// Arrange
		cfg := config.DefaultConfig()
		cfg.ExternalTimeout = 10 * time.Second

		// Act
		domain, err := ProvideDomainConfig(cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 20*time.Second, domain.FetchTimeout)
	})
}

func TestProvideQueryBus(t *testing.T) {
	// Arrange
	domain, err := ProvideDomainConfig(config.DefaultConfig())
	require.NoError(t, err)
	service := market.NewService(market.Repositories{}, domain, zap.NewNop())

	// Act
	queryBus, err := ProvideQueryBus(service, ProvideMetrics(), zap.NewNop())

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, queryBus)
}

func TestContainer_OnConfigChange(t *testing.T) {
	// Arrange
	cfg := config.DefaultConfig()
	c := &Container{Logger: zap.NewNop(), LogLevel: ProvideLogLevel(cfg)}
	next := config.DefaultConfig()

	// Act
	next.LogLevel = "error"
	c.OnConfigChange(next)
	afterValid := c.LogLevel.Level()
	next.LogLevel = "loud"
	c.OnConfigChange(next)

	// Assert
	assert.Equal(t, zapcore.ErrorLevel, afterValid)
	assert.Equal(t, zapcore.ErrorLevel, c.LogLevel.Level())
}
