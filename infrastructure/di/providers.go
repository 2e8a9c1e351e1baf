package di

import (
	"context"
	"net/http"
	"strings"
	"time"

	"liberandum-backend/application/globals"
	"liberandum-backend/application/market"
	querybus "liberandum-backend/application/queries/bus"
	queryhandlers "liberandum-backend/application/queries/handlers"
	domainconfig "liberandum-backend/domain/config"
	"liberandum-backend/infrastructure/config"
	"liberandum-backend/infrastructure/external/coinmarketcap"
	"liberandum-backend/infrastructure/persistence/abstractions"
	"liberandum-backend/infrastructure/persistence/dynamodb"
	"liberandum-backend/infrastructure/persistence/filestore"
	"liberandum-backend/interfaces/http/rest"
	apperrors "liberandum-backend/pkg/errors"
	"liberandum-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	metricsNamespace   = "liberandum"
	slowQueryThreshold = 2 * time.Second
)

// ProvideLogLevel creates the adjustable level shared by the logger and the
// config watcher
func ProvideLogLevel(cfg *config.Config) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}
	return level
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// ProvideErrorHandler creates the HTTP error renderer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracing installs the OTLP tracer provider when tracing is enabled
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideDomainConfig derives the business limits for the environment. An
// explicit CACHE_TTL overrides the environment's cache lifetime.
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	domain := domainconfig.LoadDomainConfig(cfg.Environment)
	if cfg.CacheTTL > 0 {
		domain.CacheTTL = cfg.CacheTTL
	}
	if cfg.ExternalTimeout > 0 {
		domain.FetchTimeout = 2 * cfg.ExternalTimeout
	}
	if err := domain.Validate(); err != nil {
		return nil, err
	}
	return domain, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at a local
// endpoint when one is configured
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideRepositoryFactory creates the per-table repository factory
func ProvideRepositoryFactory(
	client *awsdynamodb.Client,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) abstractions.RepositoryFactory {
	return dynamodb.NewRepositoryFactory(client, logger,
		dynamodb.WithTimeout(cfg.StoreTimeout),
		dynamodb.WithMetrics(metrics),
	)
}

// ProvideMarketRepositories opens the four market tables
func ProvideMarketRepositories(factory abstractions.RepositoryFactory, cfg *config.Config) market.Repositories {
	return market.Repositories{
		TokenStats:    factory.ForTable(cfg.TokenStatsTable),
		Tokens:        factory.ForTable(cfg.TokensTable),
		ExchangeStats: factory.ForTable(cfg.ExchangeStatsTable),
		Exchanges:     factory.ForTable(cfg.ExchangesTable),
	}
}

// ProvideMarketService creates the aggregation engine
func ProvideMarketService(
	repos market.Repositories,
	domain *domainconfig.DomainConfig,
	cfg *config.Config,
	logger *zap.Logger,
) *market.Service {
	var opts []market.ServiceOption
	if cfg.SymbolIndex != "" {
		opts = append(opts, market.WithSymbolIndex(cfg.SymbolIndex))
	}
	return market.NewService(repos, domain, logger.Named("market"), opts...)
}

// ProvideCoinMarketCapClient creates the upstream client
func ProvideCoinMarketCapClient(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *coinmarketcap.Client {
	cmcCfg := coinmarketcap.DefaultConfig(cfg.CMCAPIKey)
	if cfg.CMCBaseURL != "" {
		cmcCfg.BaseURL = cfg.CMCBaseURL
	}
	if cfg.FearGreedURL != "" {
		cmcCfg.FearGreedURL = cfg.FearGreedURL
	}
	cmcCfg.Timeout = cfg.ExternalTimeout
	return coinmarketcap.NewClient(cmcCfg, logger.Named("coinmarketcap"), metrics)
}

// ProvideSnapshotCache creates the global snapshot cache over the cache
// table, falling back to a local JSON file
func ProvideSnapshotCache(
	factory abstractions.RepositoryFactory,
	cfg *config.Config,
	domain *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *globals.SnapshotCache {
	primary := globals.NewRepositoryStore(factory.ForTable(cfg.CacheTable))
	fallback := filestore.NewStore(cfg.CacheFallbackPath, logger.Named("filestore"))
	return globals.NewSnapshotCache(primary, fallback, cfg.CacheKey, domain.CacheTTL, logger.Named("cache"), metrics)
}

// ProvideGlobalsService creates the global market service
func ProvideGlobalsService(
	cache *globals.SnapshotCache,
	client *coinmarketcap.Client,
	domain *domainconfig.DomainConfig,
	logger *zap.Logger,
) *globals.Service {
	return globals.NewService(cache, client, domain, logger.Named("globals"))
}

// ProvideQueryBus creates a query bus with the market handlers registered
func ProvideQueryBus(service *market.Service, metrics *observability.Collector, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.NewMetricsMiddleware(metrics),
		querybus.NewLoggingMiddleware(logger, slowQueryThreshold),
	)
	if err := queryhandlers.NewMarketQueryHandler(service, logger).RegisterWith(queryBus); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	queryBus *querybus.QueryBus,
	globalsService *globals.Service,
	errorHandler *apperrors.ErrorHandler,
	metrics *observability.Collector,
	domain *domainconfig.DomainConfig,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(queryBus, globalsService, errorHandler, metrics, domain, rest.RouterConfig{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
	}, logger)
}

// ProvideHTTPHandler builds the routed handler
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}
