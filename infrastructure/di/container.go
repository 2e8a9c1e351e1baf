package di

import (
	"net/http"

	"liberandum-backend/application/globals"
	"liberandum-backend/application/market"
	querybus "liberandum-backend/application/queries/bus"
	"liberandum-backend/infrastructure/config"
	"liberandum-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	LogLevel       zap.AtomicLevel
	Metrics        *observability.Collector
	Tracing        *observability.TracerProvider
	MarketService  *market.Service
	GlobalsService *globals.Service
	QueryBus       *querybus.QueryBus
	Handler        http.Handler
}

// OnConfigChange applies the settings that can change without a restart
func (c *Container) OnConfigChange(next *config.Config) {
	if err := c.LogLevel.UnmarshalText([]byte(next.LogLevel)); err != nil {
		c.Logger.Warn("Ignoring invalid log level", zap.String("log_level", next.LogLevel))
		return
	}
	c.Logger.Info("Log level updated", zap.String("log_level", c.LogLevel.String()))
}
