package handlers

import (
	"net/http"

	"liberandum-backend/application/queries"
	querybus "liberandum-backend/application/queries/bus"
	domainconfig "liberandum-backend/domain/config"
	"liberandum-backend/pkg/common"
	apperrors "liberandum-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
)

// ExchangeHandler handles exchange-related HTTP requests
type ExchangeHandler struct {
	queryBus *querybus.QueryBus
	errors   *apperrors.ErrorHandler
	config   *domainconfig.DomainConfig
}

// NewExchangeHandler creates a new exchange handler
func NewExchangeHandler(queryBus *querybus.QueryBus, errorHandler *apperrors.ErrorHandler, config *domainconfig.DomainConfig) *ExchangeHandler {
	return &ExchangeHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		config:   config,
	}
}

// ListExchanges handles GET /exchanges
func (h *ExchangeHandler) ListExchanges(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListExchangesQuery{})
}

// SearchExchanges handles GET /exchanges/search
func (h *ExchangeHandler) SearchExchanges(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.SearchExchangesQuery{
		Query: newQueryParams(r).str("q"),
		Limit: common.ExtractPaginationParams(r, h.config.DefaultSearchLimit, h.config.MaxSearchLimit).PageSize,
	})
}

// GetExchangeDetail handles GET /exchanges/{exchangeID}
func (h *ExchangeHandler) GetExchangeDetail(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetExchangeDetailQuery{ID: chi.URLParam(r, "exchangeID")})
}

func (h *ExchangeHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondOK(w, result)
}
