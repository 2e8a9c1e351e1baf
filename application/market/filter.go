package market

import (
	"strings"

	"liberandum-backend/infrastructure/persistence/abstractions"
	"liberandum-backend/pkg/utils"
)

// TokenID is the public identifier of a stats record: its lower-cased
// coingecko id, or the lower-cased symbol when it has none.
func TokenID(stat abstractions.Record) string {
	if id := strings.TrimSpace(stat.String("coingecko_id")); id != "" {
		return strings.ToLower(id)
	}
	return strings.ToLower(stat.String(abstractions.FieldSymbol))
}

// ApplyFilters narrows canonical records by spec. tokensBySymbol supplies the
// descriptive record used for classification. When the filter restricts to
// favorites and the set is empty, the result is empty.
func ApplyFilters(records []abstractions.Record, tokensBySymbol map[string]abstractions.Record, spec FilterSpec, favorites Favorites) []abstractions.Record {
	if spec.requiresFavorites() && len(favorites) == 0 {
		return []abstractions.Record{}
	}

	category := spec.category()
	out := make([]abstractions.Record, 0, len(records))
	for _, r := range records {
		if category != "" && category != CategoryAll && category != CategoryFavorites {
			if Classify(r, tokensBySymbol[r.Symbol()]) != category {
				continue
			}
		}
		if spec.requiresFavorites() && !favorites.Contains(TokenID(r)) {
			continue
		}
		if !inRange(r["market_cap"], spec.MinMarketCap, spec.MaxMarketCap) ||
			!inRange(r["price"], spec.MinPrice, spec.MaxPrice) ||
			!inRange(r["trading_volume_24h"], spec.MinVolume, spec.MaxVolume) ||
			!inRange(r["volume_24h_change_24h"], spec.PriceChange24hMin, spec.PriceChange24hMax) {
			continue
		}
		if spec.HalalOnly && !utils.SafeBool(r["is_halal"], false) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// inRange coerces v (missing or malformed reads as 0) and checks it against
// the optional inclusive bounds.
func inRange(v interface{}, lo, hi *float64) bool {
	if lo == nil && hi == nil {
		return true
	}
	f := utils.SafeFloat(v, 0)
	if lo != nil && f < *lo {
		return false
	}
	if hi != nil && f > *hi {
		return false
	}
	return true
}
