// Package coinmarketcap fetches the global market snapshot from the
// CoinMarketCap Pro API and the alternative.me fear and greed index.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"liberandum-backend/domain/marketdata"
	apperrors "liberandum-backend/pkg/errors"
	"liberandum-backend/pkg/observability"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL      = "https://pro-api.coinmarketcap.com/v1"
	DefaultFearGreedURL = "https://api.alternative.me/fng/"

	serviceName   = "coinmarketcap"
	apiKeyHeader  = "X-CMC_PRO_API_KEY"
	listingsLimit = 20
)

// ErrMissingAPIKey is returned for every CoinMarketCap call when no key is configured
var ErrMissingAPIKey = errors.New("coinmarketcap API key is not configured")

// Config holds client configuration
type Config struct {
	APIKey       string
	BaseURL      string
	FearGreedURL string
	Timeout      time.Duration
	RetryCount   int

	// Breaker
	FailureThreshold float64
	MinRequests      uint32
	OpenTimeout      time.Duration
}

// DefaultConfig returns the production endpoints with a 30 s timeout
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:           apiKey,
		BaseURL:          DefaultBaseURL,
		FearGreedURL:     DefaultFearGreedURL,
		Timeout:          30 * time.Second,
		RetryCount:       2,
		FailureThreshold: 0.8,
		MinRequests:      5,
		OpenTimeout:      60 * time.Second,
	}
}

// Client talks to the upstream market-data APIs behind a circuit breaker
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	config  Config
	logger  *zap.Logger
	metrics *observability.Collector
	now     func() time.Time
}

// NewClient creates a client
func NewClient(config Config, logger *zap.Logger, metrics *observability.Collector) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.FearGreedURL == "" {
		config.FearGreedURL = DefaultFearGreedURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetRetryCount(config.RetryCount).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "Liberandum-API/1.0")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		http:    httpClient,
		breaker: breaker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

type apiStatus struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	CreditCount  int    `json:"credit_count"`
}

type quote struct {
	TotalMarketCap                          float64 `json:"total_market_cap"`
	TotalVolume24h                          float64 `json:"total_volume_24h"`
	TotalMarketCapYesterdayPercentageChange float64 `json:"total_market_cap_yesterday_percentage_change"`
	TotalVolume24hYesterdayPercentageChange float64 `json:"total_volume_24h_yesterday_percentage_change"`
	DefiVolume24h                           float64 `json:"defi_volume_24h"`
	DefiMarketCap                           float64 `json:"defi_market_cap"`
	StablecoinVolume24h                     float64 `json:"stablecoin_volume_24h"`
	StablecoinMarketCap                     float64 `json:"stablecoin_market_cap"`
}

type globalMetricsResponse struct {
	Status apiStatus `json:"status"`
	Data   struct {
		BTCDominance           float64          `json:"btc_dominance"`
		ETHDominance           float64          `json:"eth_dominance"`
		ActiveCryptocurrencies int              `json:"active_cryptocurrencies"`
		ActiveExchanges        int              `json:"active_exchanges"`
		ActiveMarketPairs      int              `json:"active_market_pairs"`
		LastUpdated            string           `json:"last_updated"`
		Quote                  map[string]quote `json:"quote"`
	} `json:"data"`
}

type listingsResponse struct {
	Status apiStatus         `json:"status"`
	Data   []json.RawMessage `json:"data"`
}

type fearGreedResponse struct {
	Data []struct {
		Value           string `json:"value"`
		Timestamp       string `json:"timestamp"`
		TimeUntilUpdate string `json:"time_until_update"`
	} `json:"data"`
}

// Listings is the top of the market by capitalization
type Listings struct {
	Cryptocurrencies []json.RawMessage
	APICreditsUsed   int
}

// call runs one upstream request through the breaker and decodes its body
func (c *Client) call(ctx context.Context, name string, build func(*resty.Request) (*resty.Response, error), out interface{}) (err error) {
	ctx, span := observability.StartSpan(ctx, "external."+name, attribute.String("peer.service", serviceName))
	defer func() {
		c.metrics.RecordExternalCall(name, err)
		observability.EndSpan(span, err)
	}()

	_, err = c.breaker.Execute(func() (interface{}, error) {
		resp, err := build(c.http.R().SetContext(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, statusError(resp.StatusCode())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", name, err)
		}
		return nil, nil
	})
	if err != nil {
		return apperrors.NewExternalError(name, err)
	}
	return nil
}

func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return errors.New("unauthorized, check the API key")
	case http.StatusTooManyRequests:
		return errors.New("rate limited")
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

func (c *Client) cmcRequest(path string, params map[string]string) func(*resty.Request) (*resty.Response, error) {
	return func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader(apiKeyHeader, c.config.APIKey).SetQueryParams(params).Get(path)
	}
}

// GlobalMetrics fetches the aggregate market figures in USD
func (c *Client) GlobalMetrics(ctx context.Context) (*marketdata.GlobalMetrics, error) {
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var resp globalMetricsResponse
	if err := c.call(ctx, "global_metrics", c.cmcRequest("/global-metrics/quotes/latest", map[string]string{"convert": "USD"}), &resp); err != nil {
		return nil, err
	}
	if resp.Status.ErrorCode != 0 {
		return nil, apperrors.NewExternalError("global_metrics", errors.New(resp.Status.ErrorMessage))
	}

	q := resp.Data.Quote["USD"]
	return &marketdata.GlobalMetrics{
		TotalMarketCap:         q.TotalMarketCap,
		TotalVolume24h:         q.TotalVolume24h,
		MarketCapChange24h:     q.TotalMarketCapYesterdayPercentageChange,
		VolumeChange24h:        q.TotalVolume24hYesterdayPercentageChange,
		BTCDominance:           resp.Data.BTCDominance,
		ETHDominance:           resp.Data.ETHDominance,
		ActiveCryptocurrencies: resp.Data.ActiveCryptocurrencies,
		ActiveExchanges:        resp.Data.ActiveExchanges,
		ActiveMarketPairs:      resp.Data.ActiveMarketPairs,
		DefiVolume24h:          q.DefiVolume24h,
		DefiMarketCap:          q.DefiMarketCap,
		StablecoinVolume24h:    q.StablecoinVolume24h,
		StablecoinMarketCap:    q.StablecoinMarketCap,
		LastUpdated:            resp.Data.LastUpdated,
		APICreditsUsed:         resp.Status.CreditCount,
	}, nil
}

// TopListings fetches the top limit cryptocurrencies by market cap
func (c *Client) TopListings(ctx context.Context, limit int) (*Listings, error) {
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var resp listingsResponse
	params := map[string]string{"limit": strconv.Itoa(limit), "convert": "USD"}
	if err := c.call(ctx, "listings", c.cmcRequest("/cryptocurrency/listings/latest", params), &resp); err != nil {
		return nil, err
	}
	if resp.Status.ErrorCode != 0 {
		return nil, apperrors.NewExternalError("listings", errors.New(resp.Status.ErrorMessage))
	}
	return &Listings{Cryptocurrencies: resp.Data, APICreditsUsed: resp.Status.CreditCount}, nil
}

// FearGreedIndex fetches the latest sentiment reading
func (c *Client) FearGreedIndex(ctx context.Context) (*marketdata.FearGreed, error) {
	var resp fearGreedResponse
	err := c.call(ctx, "fear_greed", func(r *resty.Request) (*resty.Response, error) {
		return r.Get(c.config.FearGreedURL)
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewExternalError("fear_greed", errors.New("empty index data"))
	}

	latest := resp.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(latest.Value))
	if err != nil {
		return nil, apperrors.NewExternalError("fear_greed", fmt.Errorf("invalid index value %q: %w", latest.Value, err))
	}
	return &marketdata.FearGreed{
		Value:               value,
		ValueClassification: marketdata.ClassifyFearGreed(value),
		Timestamp:           latest.Timestamp,
		TimeUntilUpdate:     latest.TimeUntilUpdate,
		Source:              "alternative_me",
	}, nil
}

// FetchSnapshot runs the three upstream calls concurrently. Only the global
// metrics call is required; listings and the sentiment index are best effort.
func (c *Client) FetchSnapshot(ctx context.Context) (*marketdata.Snapshot, error) {
	var (
		global    *marketdata.GlobalMetrics
		listings  *Listings
		fearGreed *marketdata.FearGreed
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		global, err = c.GlobalMetrics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if listings, err = c.TopListings(gctx, listingsLimit); err != nil {
			c.logger.Warn("Top listings unavailable", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if fearGreed, err = c.FearGreedIndex(gctx); err != nil {
			c.logger.Warn("Fear and greed index unavailable", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		c.logger.Error("Global metrics fetch failed", zap.Error(err))
		return nil, err
	}

	credits := global.APICreditsUsed
	if listings != nil {
		credits += listings.APICreditsUsed
	}

	now := c.now().UTC()
	return &marketdata.Snapshot{
		GlobalMetrics:       *global,
		AltSeason:           marketdata.CalculateAltSeason(global.BTCDominance, global.ETHDominance, now),
		FearGreed:           fearGreed,
		FetchedAt:           now.Format(time.RFC3339),
		Source:              "coinmarketcap_api_complete",
		TotalAPICreditsUsed: credits,
	}, nil
}
