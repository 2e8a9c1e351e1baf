package handlers

import (
	"net/http"

	"liberandum-backend/application/queries"
	querybus "liberandum-backend/application/queries/bus"
	domainconfig "liberandum-backend/domain/config"
	"liberandum-backend/pkg/common"
	apperrors "liberandum-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TokenHandler handles token-related HTTP requests
type TokenHandler struct {
	queryBus *querybus.QueryBus
	errors   *apperrors.ErrorHandler
	config   *domainconfig.DomainConfig
	logger   *zap.Logger
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	config *domainconfig.DomainConfig,
	logger *zap.Logger,
) *TokenHandler {
	return &TokenHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		config:   config,
		logger:   logger,
	}
}

// ListTokens handles GET /tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	page := common.ExtractPaginationParams(r, h.config.DefaultPageSize, h.config.MaxPageSize)
	params := newQueryParams(r)

	query := queries.ListTokensQuery{
		Page:              page.Page,
		Limit:             page.PageSize,
		Category:          params.str("category"),
		SortBy:            params.str("sort_by"),
		SortOrder:         params.str("sort_order"),
		MinMarketCap:      params.float("min_market_cap"),
		MaxMarketCap:      params.float("max_market_cap"),
		MinPrice:          params.float("min_price"),
		MaxPrice:          params.float("max_price"),
		MinVolume:         params.float("min_volume"),
		MaxVolume:         params.float("max_volume"),
		PriceChange24hMin: params.float("price_change_24h_min"),
		PriceChange24hMax: params.float("price_change_24h_max"),
		HalalOnly:         params.boolean("halal_only"),
		FavoritesOnly:     params.boolean("favorites_only"),
		Favorites:         params.list("favorites"),
	}
	if err := params.err(); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.ask(w, r, query)
}

// SearchTokens handles GET /tokens/search
func (h *TokenHandler) SearchTokens(w http.ResponseWriter, r *http.Request) {
	limit := common.ExtractPaginationParams(r, h.config.DefaultSearchLimit, h.config.MaxSearchLimit).PageSize
	params := newQueryParams(r)

	query := queries.SearchTokensQuery{
		Query:     params.str("q"),
		Limit:     limit,
		Category:  params.str("category"),
		SortBy:    params.str("sort_by"),
		HalalOnly: params.boolean("halal_only"),
		Favorites: params.list("favorites"),
	}
	if err := params.err(); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.ask(w, r, query)
}

// GetTokenStats handles GET /tokens/{tokenID}/stats
func (h *TokenHandler) GetTokenStats(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetTokenStatsQuery{SymbolOrID: chi.URLParam(r, "tokenID")})
}

// GetTokenDetail handles GET /tokens/{tokenID}
func (h *TokenHandler) GetTokenDetail(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetTokenDetailQuery{
		ID:       chi.URLParam(r, "tokenID"),
		Language: r.URL.Query().Get("lang"),
	})
}

func (h *TokenHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondOK(w, result)
}
