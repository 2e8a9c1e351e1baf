package market

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"liberandum-backend/infrastructure/persistence/abstractions"
)

// ListExchanges returns the first page of exchange stats. Rank falls back to
// the record's scan position, counted before deleted records are skipped.
func (s *Service) ListExchanges(ctx context.Context) (*ExchangeListResponse, error) {
	stats, err := s.repos.ExchangeStats.Scan(ctx, s.config.ExchangeScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan exchange stats: %w", err)
	}

	data := make([]ExchangeSummary, 0, len(stats))
	for i, stat := range stats {
		if stat.IsDeleted() {
			continue
		}
		data = append(data, ToExchangeSummary(stat, nil, int64(i+1)))
	}
	return &ExchangeListResponse{Data: data}, nil
}

// SearchExchanges matches the query against exchange names and coingecko ids
// and joins each hit to its stats by name. Exchanges without stats are left
// out; rank is the position in the result.
func (s *Service) SearchExchanges(ctx context.Context, query string, limit int) (*ExchangeListResponse, error) {
	if limit < 1 {
		limit = s.config.DefaultSearchLimit
	}

	exchanges, err := s.repos.Exchanges.Scan(ctx, s.config.ExchangeSearchScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan exchanges: %w", err)
	}
	stats, err := s.repos.ExchangeStats.Scan(ctx, s.config.ExchangeSearchScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan exchange stats: %w", err)
	}

	statsByName := make(map[string]abstractions.Record, len(stats))
	for _, st := range stats {
		if st.IsDeleted() {
			continue
		}
		if name := st.String("name"); name != "" {
			statsByName[name] = st
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	data := make([]ExchangeSummary, 0)
	for _, ex := range exchanges {
		if len(data) >= limit {
			break
		}
		if ex.IsDeleted() {
			continue
		}
		name := ex.String("name")
		if !strings.Contains(strings.ToLower(name), q) && !strings.Contains(strings.ToLower(ex.String("coingecko_id")), q) {
			continue
		}
		st, ok := statsByName[name]
		if !ok {
			continue
		}
		summary := ToExchangeSummary(st, ex, int64(len(data)+1))
		summary.Rank = int64(len(data) + 1)
		data = append(data, summary)
	}
	return &ExchangeListResponse{Data: data}, nil
}

// GetExchangeDetail looks an exchange up by coingecko id, then by its display
// name ("binance_us" reads as "Binance Us"). Not found yields nil.
func (s *Service) GetExchangeDetail(ctx context.Context, id string) (*ExchangeDetail, error) {
	key := strings.TrimSpace(id)
	if key == "" {
		return nil, nil
	}

	found, err := s.repos.ExchangeStats.FindByField(ctx, "coingecko_id", key, "")
	if err != nil {
		return nil, fmt.Errorf("failed to find exchange by coingecko id: %w", err)
	}
	if len(found) == 0 {
		found, err = s.repos.ExchangeStats.FindByField(ctx, "name", displayName(key), "")
		if err != nil {
			return nil, fmt.Errorf("failed to find exchange by name: %w", err)
		}
	}

	for _, st := range found {
		if !st.IsDeleted() {
			return ToExchangeDetail(st, key), nil
		}
	}
	return nil, nil
}

// displayName turns an id such as "crypto_com" into "Crypto Com"
func displayName(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
