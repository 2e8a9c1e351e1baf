package globals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainconfig "liberandum-backend/domain/config"
	"liberandum-backend/domain/marketdata"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotFetcher performs the expensive upstream computation the cache protects
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*marketdata.Snapshot, error)
}

// Service serves the global market view: cached snapshot first, a fresh
// fetch on a miss, and a static snapshot when the upstream is unreachable.
type Service struct {
	cache   *SnapshotCache
	fetcher SnapshotFetcher
	config  *domainconfig.DomainConfig
	flight  singleflight.Group
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates the global market service
func NewService(cache *SnapshotCache, fetcher SnapshotFetcher, config *domainconfig.DomainConfig, logger *zap.Logger) *Service {
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

type fetchResult struct {
	snapshot *marketdata.Snapshot
	source   string
}

// GetGlobalMarket never fails: when neither the cache nor the upstream can
// serve, the static fallback response is returned.
func (s *Service) GetGlobalMarket(ctx context.Context) *GlobalMarketResponse {
	if snap := s.cached(ctx); snap != nil {
		return s.buildResponse(snap, SourceCached)
	}

	// Concurrent misses share one upstream fetch. It is detached from the
	// first caller so one cancelled request cannot fail the others.
	v, err, shared := s.flight.Do(s.cache.Key(), func() (interface{}, error) {
		fetchCtx, cancel := s.fetchContext(ctx)
		defer cancel()

		if snap := s.cached(fetchCtx); snap != nil {
			return fetchResult{snapshot: snap, source: SourceCached}, nil
		}

		snap, err := s.fetcher.FetchSnapshot(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fetchCtx, snap); err != nil {
			s.logger.Warn("Failed to cache global snapshot", zap.Error(err))
		}
		return fetchResult{snapshot: snap, source: SourceComplete}, nil
	})
	if err != nil {
		s.logger.Error("Global market fetch failed, serving fallback",
			zap.Error(err),
			zap.Bool("shared", shared),
		)
		return s.fallbackResponse()
	}

	res := v.(fetchResult)
	return s.buildResponse(res.snapshot, res.source)
}

func (s *Service) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.config.FetchTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, s.config.FetchTimeout)
}

// cached returns the cached snapshot or nil. Cache failures are logged and
// treated as a miss.
func (s *Service) cached(ctx context.Context) *marketdata.Snapshot {
	hit, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("Snapshot cache unavailable", zap.Error(err))
		return nil
	}
	if hit == nil {
		return nil
	}

	var snap marketdata.Snapshot
	if err := json.Unmarshal(hit.Data, &snap); err != nil {
		s.logger.Warn("Discarding undecodable cached snapshot", zap.Error(err))
		return nil
	}
	return &snap
}

func (s *Service) buildResponse(snap *marketdata.Snapshot, source string) *GlobalMarketResponse {
	gm := snap.GlobalMetrics
	nowStr := s.now().UTC().Format(time.RFC3339)

	fg := FearGreedIndex{
		Value:               50,
		ValueClassification: marketdata.ClassifyFearGreed(50),
		Timestamp:           nowStr,
		TimeUntilUpdate:     strPtr("Unavailable"),
	}
	if snap.FearGreed != nil {
		fg = FearGreedIndex{
			Value:               snap.FearGreed.Value,
			ValueClassification: snap.FearGreed.ValueClassification,
			Timestamp:           snap.FearGreed.Timestamp,
			TimeUntilUpdate:     strPtr(snap.FearGreed.TimeUntilUpdate),
		}
	}

	lastUpdated := snap.FetchedAt
	if lastUpdated == "" {
		lastUpdated = nowStr
	}

	remaining := max(0, s.config.APICreditBudget-gm.APICreditsUsed*s.config.CallsPerAPICredit)

	return &GlobalMarketResponse{
		MarketCap: MarketCapData{
			TotalMarketCapUSD:         gm.TotalMarketCap,
			TotalVolumeUSD:            gm.TotalVolume24h,
			MarketCapChange24hPercent: gm.MarketCapChange24h,
			BTCDominance:              gm.BTCDominance,
			ETHDominance:              gm.ETHDominance,
			ActiveCryptocurrencies:    intPtr(gm.ActiveCryptocurrencies),
			Markets:                   intPtr(gm.ActiveMarketPairs),
			DefiDominance:             marketdata.Share(gm.DefiMarketCap, gm.TotalMarketCap),
			StablecoinDominance:       marketdata.Share(gm.StablecoinMarketCap, gm.TotalMarketCap),
		},
		FearGreedIndex: fg,
		AltSeason:      snap.AltSeason,
		DominanceChanges: &DominanceChanges{
			BTCDominance:    gm.BTCDominance,
			ETHDominance:    gm.ETHDominance,
			OthersDominance: 100 - gm.BTCDominance - gm.ETHDominance,
		},
		LastUpdated:       lastUpdated,
		DataSource:        source,
		APICallsRemaining: &remaining,
		NextUpdateIn:      fmt.Sprintf("%s (cache)", formatTTL(s.cache.TTL())),
	}
}

func (s *Service) fallbackResponse() *GlobalMarketResponse {
	now := s.now().UTC().Format(time.RFC3339)
	btc, eth, alt := 50.0, 15.0, 35.0

	return &GlobalMarketResponse{
		MarketCap: MarketCapData{
			TotalMarketCapUSD:         4.05e12,
			TotalVolumeUSD:            1.5e11,
			MarketCapChange24hPercent: 0.5,
			BTCDominance:              btc,
			ETHDominance:              eth,
			ActiveCryptocurrencies:    intPtr(18000),
			Markets:                   intPtr(500),
			DefiDominance:             floatPtr(3.5),
			StablecoinDominance:       floatPtr(6.8),
		},
		FearGreedIndex: FearGreedIndex{
			Value:               50,
			ValueClassification: marketdata.ClassifyFearGreed(50),
			Timestamp:           now,
			TimeUntilUpdate:     strPtr("Updates in 24 hours"),
			Trend7d:             strPtr("Fallback data"),
		},
		AltSeason: marketdata.AltSeason{
			Index:        50,
			Status:       marketdata.StatusNeutral,
			Description:  "Neutral market, data temporarily unavailable",
			Source:       SourceFallback,
			BTCDominance: &btc,
			ETHDominance: &eth,
			AltDominance: &alt,
		},
		LastUpdated:  now,
		DataSource:   SourceFallback,
		NextUpdateIn: "When the upstream API recovers",
	}
}

// Dominance returns the market share breakdown
func (s *Service) Dominance(ctx context.Context) DominanceResponse {
	r := s.GetGlobalMarket(ctx)
	return DominanceResponse{
		BTCDominance:        r.MarketCap.BTCDominance,
		ETHDominance:        r.MarketCap.ETHDominance,
		OthersDominance:     100 - r.MarketCap.BTCDominance - r.MarketCap.ETHDominance,
		DefiDominance:       r.MarketCap.DefiDominance,
		StablecoinDominance: r.MarketCap.StablecoinDominance,
		LastUpdated:         r.LastUpdated,
		DataSource:          r.DataSource,
	}
}

// AltSeason returns the alt-season reading
func (s *Service) AltSeason(ctx context.Context) AltSeasonResponse {
	r := s.GetGlobalMarket(ctx)
	return AltSeasonResponse{
		Index:        r.AltSeason.Index,
		Status:       r.AltSeason.Status,
		Description:  r.AltSeason.Description,
		BTCDominance: r.AltSeason.BTCDominance,
		ETHDominance: r.AltSeason.ETHDominance,
		AltDominance: r.AltSeason.AltDominance,
		Source:       r.AltSeason.Source,
		LastUpdated:  r.LastUpdated,
		DataSource:   r.DataSource,
	}
}

// FearGreed returns the sentiment index
func (s *Service) FearGreed(ctx context.Context) FearGreedResponse {
	r := s.GetGlobalMarket(ctx)
	return FearGreedResponse{
		Value:               r.FearGreedIndex.Value,
		ValueClassification: r.FearGreedIndex.ValueClassification,
		Timestamp:           r.FearGreedIndex.Timestamp,
		TimeUntilUpdate:     r.FearGreedIndex.TimeUntilUpdate,
		LastUpdated:         r.LastUpdated,
		DataSource:          r.DataSource,
	}
}

// CacheInfo describes the cache entry
func (s *Service) CacheInfo(ctx context.Context) (*CacheInfoResponse, error) {
	info, err := s.cache.Info(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheInfoResponse{
		CacheInfo:     info,
		CacheTTLHours: s.cache.TTL().Hours(),
		Description:   fmt.Sprintf("Global market snapshot is refreshed every %s", formatTTL(s.cache.TTL())),
	}, nil
}

// ClearCache forces the next request to fetch fresh data
func (s *Service) ClearCache(ctx context.Context) (*ClearCacheResponse, error) {
	existed, err := s.cache.Clear(ctx)
	if err != nil {
		return nil, err
	}
	if !existed {
		return &ClearCacheResponse{
			Message: "Cache was already empty",
			Status:  "no_action_needed",
		}, nil
	}
	return &ClearCacheResponse{
		Message:     "Cache cleared",
		NextRequest: "The next request will fetch fresh data",
	}, nil
}

func formatTTL(d time.Duration) string {
	if d%time.Hour == 0 {
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return d.String()
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
