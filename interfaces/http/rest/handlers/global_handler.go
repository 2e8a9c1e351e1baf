package handlers

import (
	"context"
	"net/http"

	"liberandum-backend/application/globals"
	"liberandum-backend/pkg/common"
	apperrors "liberandum-backend/pkg/errors"
)

// GlobalService serves the cached global market snapshot
type GlobalService interface {
	GetGlobalMarket(ctx context.Context) *globals.GlobalMarketResponse
	Dominance(ctx context.Context) globals.DominanceResponse
	AltSeason(ctx context.Context) globals.AltSeasonResponse
	FearGreed(ctx context.Context) globals.FearGreedResponse
	CacheInfo(ctx context.Context) (*globals.CacheInfoResponse, error)
	ClearCache(ctx context.Context) (*globals.ClearCacheResponse, error)
}

// GlobalHandler handles the global market endpoints
type GlobalHandler struct {
	service GlobalService
	errors  *apperrors.ErrorHandler
}

// NewGlobalHandler creates a new global market handler
func NewGlobalHandler(service GlobalService, errorHandler *apperrors.ErrorHandler) *GlobalHandler {
	return &GlobalHandler{
		service: service,
		errors:  errorHandler,
	}
}

// GetGlobalMarket handles GET /global
func (h *GlobalHandler) GetGlobalMarket(w http.ResponseWriter, r *http.Request) {
	common.RespondOK(w, h.service.GetGlobalMarket(r.Context()))
}

// GetDominance handles GET /global/dominance
func (h *GlobalHandler) GetDominance(w http.ResponseWriter, r *http.Request) {
	common.RespondOK(w, h.service.Dominance(r.Context()))
}

// GetAltSeason handles GET /global/alt-season
func (h *GlobalHandler) GetAltSeason(w http.ResponseWriter, r *http.Request) {
	common.RespondOK(w, h.service.AltSeason(r.Context()))
}

// GetFearGreed handles GET /global/fear-greed
func (h *GlobalHandler) GetFearGreed(w http.ResponseWriter, r *http.Request) {
	common.RespondOK(w, h.service.FearGreed(r.Context()))
}

// GetCacheInfo handles GET /global/cache-info
func (h *GlobalHandler) GetCacheInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.CacheInfo(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondOK(w, info)
}

// ClearCache handles POST /global/clear-cache
func (h *GlobalHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ClearCache(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondOK(w, resp)
}
