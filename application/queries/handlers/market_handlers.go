package handlers

import (
	"context"
	"fmt"

	"liberandum-backend/application/market"
	"liberandum-backend/application/queries"
	"liberandum-backend/application/queries/bus"
	apperrors "liberandum-backend/pkg/errors"

	"go.uber.org/zap"
)

// MarketReader is the part of the aggregation engine the handlers need
type MarketReader interface {
	ListTokens(ctx context.Context, p market.ListTokensParams) (*market.TokenListResponse, error)
	SearchTokens(ctx context.Context, p market.SearchTokensParams) (*market.TokenListResponse, error)
	GetFullStats(ctx context.Context, symbolOrID string) (*market.TokenFullStats, error)
	GetTokenDetail(ctx context.Context, id, language string) (*market.TokenDetail, error)
	ListExchanges(ctx context.Context) (*market.ExchangeListResponse, error)
	SearchExchanges(ctx context.Context, query string, limit int) (*market.ExchangeListResponse, error)
	GetExchangeDetail(ctx context.Context, id string) (*market.ExchangeDetail, error)
}

// MarketQueryHandler answers the market read queries
type MarketQueryHandler struct {
	reader MarketReader
	logger *zap.Logger
}

// NewMarketQueryHandler creates a new market query handler
func NewMarketQueryHandler(reader MarketReader, logger *zap.Logger) *MarketQueryHandler {
	return &MarketQueryHandler{
		reader: reader,
		logger: logger,
	}
}

// RegisterWith registers one bus handler per market query type
func (h *MarketQueryHandler) RegisterWith(b *bus.QueryBus) error {
	registrations := []bus.Query{
		queries.ListTokensQuery{},
		queries.SearchTokensQuery{},
		queries.GetTokenStatsQuery{},
		queries.GetTokenDetailQuery{},
		queries.ListExchangesQuery{},
		queries.SearchExchangesQuery{},
		queries.GetExchangeDetailQuery{},
	}
	for _, q := range registrations {
		if err := b.Register(q, bus.QueryHandlerFunc(h.Handle)); err != nil {
			return err
		}
	}
	return nil
}

// Handle dispatches on the concrete query type
func (h *MarketQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.ListTokensQuery:
		return h.reader.ListTokens(ctx, q.Params())
	case queries.SearchTokensQuery:
		return h.reader.SearchTokens(ctx, q.Params())
	case queries.GetTokenStatsQuery:
		return h.GetTokenStats(ctx, q)
	case queries.GetTokenDetailQuery:
		return h.GetTokenDetail(ctx, q)
	case queries.ListExchangesQuery:
		return h.reader.ListExchanges(ctx)
	case queries.SearchExchangesQuery:
		return h.reader.SearchExchanges(ctx, q.Query, q.Limit)
	case queries.GetExchangeDetailQuery:
		return h.GetExchangeDetail(ctx, q)
	default:
		return nil, fmt.Errorf("unsupported query type %T", query)
	}
}

// GetTokenStats maps a missing token to a NOT_FOUND error
func (h *MarketQueryHandler) GetTokenStats(ctx context.Context, q queries.GetTokenStatsQuery) (*market.TokenFullStats, error) {
	stats, err := h.reader.GetFullStats(ctx, q.SymbolOrID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		h.logger.Debug("Token stats not found", zap.String("symbolOrID", q.SymbolOrID))
		return nil, apperrors.NewNotFoundError("token").WithDetails(map[string]interface{}{"id": q.SymbolOrID})
	}
	return stats, nil
}

// GetTokenDetail maps a missing token to a NOT_FOUND error
func (h *MarketQueryHandler) GetTokenDetail(ctx context.Context, q queries.GetTokenDetailQuery) (*market.TokenDetail, error) {
	language := q.Language
	if language == "" {
		language = market.LanguageEN
	}
	detail, err := h.reader.GetTokenDetail(ctx, q.ID, language)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, apperrors.NewNotFoundError("token").WithDetails(map[string]interface{}{"id": q.ID})
	}
	return detail, nil
}

// GetExchangeDetail maps a missing exchange to a NOT_FOUND error
func (h *MarketQueryHandler) GetExchangeDetail(ctx context.Context, q queries.GetExchangeDetailQuery) (*market.ExchangeDetail, error) {
	detail, err := h.reader.GetExchangeDetail(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, apperrors.NewNotFoundError("exchange").WithDetails(map[string]interface{}{"id": q.ID})
	}
	return detail, nil
}
