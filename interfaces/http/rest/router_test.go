package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"liberandum-backend/application/globals"
	"liberandum-backend/application/market"
	"liberandum-backend/application/queries"
	querybus "liberandum-backend/application/queries/bus"
	domainconfig "liberandum-backend/domain/config"
	apperrors "liberandum-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGlobals struct {
	cleared bool
	infoErr error
}

func (f *fakeGlobals) GetGlobalMarket(context.Context) *globals.GlobalMarketResponse {
	return &globals.GlobalMarketResponse{DataSource: globals.SourceFallback}
}

func (f *fakeGlobals) Dominance(context.Context) globals.DominanceResponse {
	return globals.DominanceResponse{BTCDominance: 52.5}
}

func (f *fakeGlobals) AltSeason(context.Context) globals.AltSeasonResponse {
	return globals.AltSeasonResponse{Index: 40}
}

func (f *fakeGlobals) FearGreed(context.Context) globals.FearGreedResponse {
	return globals.FearGreedResponse{Value: 55}
}

func (f *fakeGlobals) CacheInfo(context.Context) (*globals.CacheInfoResponse, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &globals.CacheInfoResponse{CacheTTLHours: 1}, nil
}

func (f *fakeGlobals) ClearCache(context.Context) (*globals.ClearCacheResponse, error) {
	f.cleared = true
	return &globals.ClearCacheResponse{Message: "Cache cleared"}, nil
}

type testServer struct {
	handler http.Handler
	globals *fakeGlobals
	asked   []querybus.Query
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{globals: &fakeGlobals{}}

	record := func(result interface{}, err error) querybus.QueryHandlerFunc {
		return func(_ context.Context, q querybus.Query) (interface{}, error) {
			ts.asked = append(ts.asked, q)
			return result, err
		}
	}

	b := querybus.NewQueryBus()
	require.NoError(t, b.Register(queries.ListTokensQuery{}, record(&market.TokenListResponse{Data: []market.TokenSummary{{ID: "bitcoin"}}}, nil)))
	require.NoError(t, b.Register(queries.SearchTokensQuery{}, record(&market.TokenListResponse{}, nil)))
	require.NoError(t, b.Register(queries.GetTokenStatsQuery{}, record(nil, apperrors.NewNotFoundError("token"))))
	require.NoError(t, b.Register(queries.GetTokenDetailQuery{}, record(&market.TokenDetail{ID: "solana"}, nil)))
	require.NoError(t, b.Register(queries.ListExchangesQuery{}, record(&market.ExchangeListResponse{}, nil)))
	require.NoError(t, b.Register(queries.SearchExchangesQuery{}, record(&market.ExchangeListResponse{}, nil)))
	require.NoError(t, b.Register(queries.GetExchangeDetailQuery{}, record(&market.ExchangeDetail{ID: "binance"}, nil)))

	logger := zap.NewNop()
	ts.handler = NewRouter(
		b,
		ts.globals,
		apperrors.NewErrorHandler(logger, false),
		nil,
		domainconfig.DefaultDomainConfig(),
		RouterConfig{EnableCORS: true},
		logger,
	).Setup()
	return ts
}

func (ts *testServer) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_Health(t *testing.T) {
	// Arrange
	ts := newTestServer(t)

	// Act
	rec := ts.do(http.MethodGet, "/health")

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestRouter_ListTokens(t *testing.T) {
	t.Run("Should translate query parameters into a list query", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/tokens?page=2&limit=999&category=defi&sort_order=asc&min_price=5&halal_only=true&favorites=btc,%20eth,")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, ts.asked, 1)
		q := ts.asked[0].(queries.ListTokensQuery)
		assert.Equal(t, 2, q.Page)
		assert.Equal(t, 250, q.Limit)
		assert.Equal(t, "defi", q.Category)
		assert.Equal(t, "asc", q.SortOrder)
		require.NotNil(t, q.MinPrice)
		assert.Equal(t, 5.0, *q.MinPrice)
		assert.Nil(t, q.MaxPrice)
		assert.True(t, q.HalalOnly)
		assert.Equal(t, []string{"btc", "eth"}, q.Favorites)
	})

	t.Run("Should reject malformed numbers before dispatching", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/tokens?min_price=cheap&halal_only=maybe")

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "VALIDATION", body["type"])
		assert.Contains(t, body["message"], "min_price")
		assert.Contains(t, body["message"], "halal_only")
		assert.Empty(t, ts.asked)
	})

	t.Run("Should reject an inverted range", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/tokens?min_market_cap=10&max_market_cap=1")

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, ts.asked)
	})
}

func TestRouter_TokenRoutes(t *testing.T) {
	t.Run("Should require a search term", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/tokens/search?limit=5")

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Should render NOT_FOUND for missing token stats", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/tokens/nope/stats")

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decode(t, rec)["type"])
		assert.Equal(t, queries.GetTokenStatsQuery{SymbolOrID: "nope"}, ts.asked[0])
	})

	t.Run("Should pass the language to the detail query", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/tokens/solana?lang=ru")

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, queries.GetTokenDetailQuery{ID: "solana", Language: "ru"}, ts.asked[0])
	})

	t.Run("Should reject an unsupported language", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/tokens/solana?lang=fr")

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_ExchangeRoutes(t *testing.T) {
	// Arrange
	ts := newTestServer(t)

	// Act
	list := ts.do(http.MethodGet, "/api/v1/market/exchanges")
	search := ts.do(http.MethodGet, "/api/v1/market/exchanges/search?q=bin")
	detail := ts.do(http.MethodGet, "/api/v1/market/exchanges/binance")

	// Assert
	assert.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, http.StatusOK, search.Code)
	assert.Equal(t, http.StatusOK, detail.Code)
	require.Len(t, ts.asked, 3)
	assert.Equal(t, queries.SearchExchangesQuery{Query: "bin", Limit: 20}, ts.asked[1])
	assert.Equal(t, queries.GetExchangeDetailQuery{ID: "binance"}, ts.asked[2])
}

func TestRouter_GlobalRoutes(t *testing.T) {
	t.Run("Should serve every global view", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act & Assert
		for _, path := range []string{"", "/dominance", "/alt-season", "/fear-greed", "/cache-info"} {
			rec := ts.do(http.MethodGet, "/api/v1/market/global"+path)
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})

	t.Run("Should clear the cache only on POST", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)

		// Act
		get := ts.do(http.MethodGet, "/api/v1/market/global/clear-cache")
		post := ts.do(http.MethodPost, "/api/v1/market/global/clear-cache")

		// Assert
		assert.Equal(t, http.StatusMethodNotAllowed, get.Code)
		assert.Equal(t, http.StatusOK, post.Code)
		assert.True(t, ts.globals.cleared)
	})

	t.Run("Should surface cache info failures", func(t *testing.T) {
		// Arrange
		ts := newTestServer(t)
		ts.globals.infoErr = apperrors.NewUnavailableError("cache")

		// Act
		rec := ts.do(http.MethodGet, "/api/v1/market/global/cache-info")

		// Assert
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
