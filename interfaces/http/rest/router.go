package rest

import (
	"net/http"

	querybus "liberandum-backend/application/queries/bus"
	domainconfig "liberandum-backend/domain/config"
	"liberandum-backend/interfaces/http/rest/handlers"
	"liberandum-backend/interfaces/http/rest/middleware"
	apperrors "liberandum-backend/pkg/errors"
	"liberandum-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig holds the HTTP surface switches
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
	EnableMetrics  bool
}

// Router creates and configures the HTTP router
type Router struct {
	queryBus     *querybus.QueryBus
	globals      handlers.GlobalService
	errorHandler *apperrors.ErrorHandler
	metrics      *observability.Collector
	domain       *domainconfig.DomainConfig
	config       RouterConfig
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	queryBus *querybus.QueryBus,
	globals handlers.GlobalService,
	errorHandler *apperrors.ErrorHandler,
	metrics *observability.Collector,
	domain *domainconfig.DomainConfig,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		queryBus:     queryBus,
		globals:      globals,
		errorHandler: errorHandler,
		metrics:      metrics,
		domain:       domain,
		config:       config,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil && rt.config.EnableMetrics {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1/market", func(r chi.Router) {
		r.Route("/tokens", func(r chi.Router) {
			tokenHandler := handlers.NewTokenHandler(rt.queryBus, rt.errorHandler, rt.domain, rt.logger)
			r.Get("/", tokenHandler.ListTokens)
			r.Get("/search", tokenHandler.SearchTokens)
			r.Get("/{tokenID}/stats", tokenHandler.GetTokenStats)
			r.Get("/{tokenID}", tokenHandler.GetTokenDetail)
		})

		r.Route("/exchanges", func(r chi.Router) {
			exchangeHandler := handlers.NewExchangeHandler(rt.queryBus, rt.errorHandler, rt.domain)
			r.Get("/", exchangeHandler.ListExchanges)
			r.Get("/search", exchangeHandler.SearchExchanges)
			r.Get("/{exchangeID}", exchangeHandler.GetExchangeDetail)
		})

		r.Route("/global", func(r chi.Router) {
			globalHandler := handlers.NewGlobalHandler(rt.globals, rt.errorHandler)
			r.Get("/", globalHandler.GetGlobalMarket)
			r.Get("/cache-info", globalHandler.GetCacheInfo)
			r.Post("/clear-cache", globalHandler.ClearCache)
			r.Get("/dominance", globalHandler.GetDominance)
			r.Get("/alt-season", globalHandler.GetAltSeason)
			r.Get("/fear-greed", globalHandler.GetFearGreed)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
