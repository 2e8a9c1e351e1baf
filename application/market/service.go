// Package market turns raw token and exchange scans into deduplicated,
// filtered, sorted and paginated responses.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainconfig "liberandum-backend/domain/config"
	"liberandum-backend/infrastructure/persistence/abstractions"
	"liberandum-backend/pkg/common"

	"go.uber.org/zap"
)

// Repositories are the four tables the engine reads
type Repositories struct {
	TokenStats    abstractions.Repository
	Tokens        abstractions.Repository
	ExchangeStats abstractions.Repository
	Exchanges     abstractions.Repository
}

// Service is the aggregation engine. It holds no mutable state; every call
// performs its own bounded scan.
type Service struct {
	repos       Repositories
	config      *domainconfig.DomainConfig
	sorter      Sorter
	symbolIndex string
	logger      *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithSymbolIndex makes symbol lookups query the named index instead of scanning
func WithSymbolIndex(index string) ServiceOption {
	return func(s *Service) {
		s.symbolIndex = index
	}
}

// NewService creates the aggregation engine
func NewService(repos Repositories, config *domainconfig.DomainConfig, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repos:  repos,
		config: config,
		sorter: Sorter{MissingRank: config.MissingRank},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTokensParams selects one page of the token listing
type ListTokensParams struct {
	Page      int
	PageSize  int
	Filter    FilterSpec
	SortBy    string
	SortOrder string
	Favorites Favorites
}

// SearchTokensParams describes a free-text token search
type SearchTokensParams struct {
	Query     string
	Limit     int
	Category  string
	SortBy    string
	HalalOnly bool
	Favorites Favorites
}

// ListTokens runs scan, dedup, filter, sort, paginate and convert
func (s *Service) ListTokens(ctx context.Context, p ListTokensParams) (*TokenListResponse, error) {
	start := time.Now()
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = s.config.DefaultPageSize
	}

	stats, tokensBySymbol, err := s.loadTokens(ctx, s.config.StatsScanLimit(p.PageSize), s.config.TokenScanLimit)
	if err != nil {
		return nil, err
	}

	filtered := ApplyFilters(CanonicalRecords(stats), tokensBySymbol, p.Filter, p.Favorites)
	sorted := s.sorter.Sort(filtered, p.SortBy, p.SortOrder, p.Favorites)
	page, pagination := common.Paginate(sorted, p.Page, p.PageSize)

	resp := &TokenListResponse{
		Data:       s.summaries(page, tokensBySymbol, p.Favorites),
		Pagination: pagination,
	}

	s.logger.Debug("Listed tokens",
		zap.Int("scanned", len(stats)),
		zap.Int("matched", len(filtered)),
		zap.Int("page", p.Page),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// SearchTokens matches the query against name, symbol and coingecko id, then
// applies the category and halal filters and the descending sort. The result
// is a single page of at most Limit items.
func (s *Service) SearchTokens(ctx context.Context, p SearchTokensParams) (*TokenListResponse, error) {
	if p.Limit < 1 {
		p.Limit = s.config.DefaultSearchLimit
	}

	stats, tokensBySymbol, err := s.loadTokens(ctx, s.config.SearchScanLimit, s.config.SearchScanLimit)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(p.Query))
	matching := make([]abstractions.Record, 0)
	for _, stat := range CanonicalRecords(stats) {
		if matchesQuery(stat, q) {
			matching = append(matching, stat)
		}
	}

	filtered := ApplyFilters(matching, tokensBySymbol, FilterSpec{Category: p.Category, HalalOnly: p.HalalOnly}, p.Favorites)
	sorted := s.sorter.Sort(filtered, p.SortBy, OrderDesc, p.Favorites)
	if len(sorted) > p.Limit {
		sorted = sorted[:p.Limit]
	}

	data := s.summaries(sorted, tokensBySymbol, p.Favorites)
	return &TokenListResponse{
		Data: data,
		Pagination: common.Pagination{
			CurrentPage:  1,
			TotalPages:   1,
			TotalItems:   len(data),
			ItemsPerPage: p.Limit,
		},
	}, nil
}

func matchesQuery(stat abstractions.Record, q string) bool {
	name := strings.ToLower(stat.String("coin_name"))
	symbol := strings.ToLower(stat.String(abstractions.FieldSymbol))
	coingeckoID := strings.ToLower(stat.String("coingecko_id"))
	return strings.Contains(name, q) ||
		strings.Contains(symbol, q) ||
		strings.Contains(coingeckoID, q)
}

// GetFullStats looks a token up by symbol, then by coingecko id. A missing or
// filtered-out token yields nil without error.
func (s *Service) GetFullStats(ctx context.Context, symbolOrID string) (*TokenFullStats, error) {
	key := strings.TrimSpace(symbolOrID)
	if key == "" {
		return nil, nil
	}

	candidates, err := s.repos.TokenStats.FindByField(ctx, abstractions.FieldSymbol, strings.ToUpper(key), s.symbolIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to find token stats by symbol: %w", err)
	}
	if len(candidates) == 0 {
		candidates, err = s.repos.TokenStats.FindByField(ctx, "coingecko_id", strings.ToLower(key), "")
		if err != nil {
			return nil, fmt.Errorf("failed to find token stats by coingecko id: %w", err)
		}
	}

	canonical := CanonicalRecords(candidates)
	if len(canonical) == 0 {
		return nil, nil
	}
	return ToTokenFullStats(canonical[0]), nil
}

// GetTokenDetail looks a token up by coingecko id, then by symbol, and joins
// its first live descriptive record
func (s *Service) GetTokenDetail(ctx context.Context, id, language string) (*TokenDetail, error) {
	key := strings.TrimSpace(id)
	if key == "" {
		return nil, nil
	}

	candidates, err := s.repos.TokenStats.FindByField(ctx, "coingecko_id", key, "")
	if err != nil {
		return nil, fmt.Errorf("failed to find token stats by coingecko id: %w", err)
	}
	if len(candidates) == 0 {
		candidates, err = s.repos.TokenStats.FindByField(ctx, abstractions.FieldSymbol, strings.ToUpper(key), s.symbolIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to find token stats by symbol: %w", err)
		}
	}

	canonical := CanonicalRecords(candidates)
	if len(canonical) == 0 {
		return nil, nil
	}
	stat := canonical[0]

	token, err := s.findLiveToken(ctx, stat)
	if err != nil {
		return nil, err
	}
	return ToTokenDetail(stat, token, language), nil
}

func (s *Service) findLiveToken(ctx context.Context, stat abstractions.Record) (abstractions.Record, error) {
	lookups := []struct {
		field, value, index string
	}{
		{abstractions.FieldSymbol, stat.String(abstractions.FieldSymbol), s.symbolIndex},
		{"coingecko_id", stat.String("coingecko_id"), ""},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		found, err := s.repos.Tokens.FindByField(ctx, l.field, l.value, l.index)
		if err != nil {
			return nil, fmt.Errorf("failed to find token by %s: %w", l.field, err)
		}
		for _, t := range found {
			if !t.IsDeleted() {
				return t, nil
			}
		}
	}
	return nil, nil
}

// loadTokens scans both token tables
func (s *Service) loadTokens(ctx context.Context, statsLimit, tokensLimit int) ([]abstractions.Record, map[string]abstractions.Record, error) {
	stats, err := s.repos.TokenStats.Scan(ctx, statsLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan token stats: %w", err)
	}
	tokens, err := s.repos.Tokens.Scan(ctx, tokensLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan tokens: %w", err)
	}
	return stats, TokensBySymbol(tokens), nil
}

// summaries converts records, skipping any that fail conversion
func (s *Service) summaries(records []abstractions.Record, tokensBySymbol map[string]abstractions.Record, favorites Favorites) []TokenSummary {
	out := make([]TokenSummary, 0, len(records))
	for _, r := range records {
		summary, err := ToTokenSummary(r, tokensBySymbol[r.Symbol()], favorites)
		if err != nil {
			s.logger.Warn("Skipping unconvertible token record",
				zap.String("id", r.ID()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, summary)
	}
	return out
}
