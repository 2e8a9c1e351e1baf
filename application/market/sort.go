package market

import (
	"cmp"
	"sort"
	"strings"

	"liberandum-backend/infrastructure/persistence/abstractions"
	"liberandum-backend/pkg/utils"
)

// Sort keys accepted by SortRecords
const (
	SortMarketCap      = "market_cap"
	SortVolume         = "volume"
	SortPrice          = "price"
	SortPriceChange24h = "price_change_24h"
	SortPriceChange7d  = "price_change_7d"
	SortMarketCapRank  = "market_cap_rank"
	SortAlphabetical   = "alphabetical"
	SortHalal          = "halal"
	SortFavorites      = "favorites"
	SortNewest         = "newest"
	SortOldest         = "oldest"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// DefaultMissingRank places records without a rank after every ranked one
const DefaultMissingRank = 999999

// Sorter orders canonical records. The zero value treats a missing rank as
// DefaultMissingRank.
type Sorter struct {
	MissingRank int64
}

type sortPlan struct {
	compare    func(a, b abstractions.Record) int
	descending bool
}

// SortRecords is Sorter{}.Sort
func SortRecords(records []abstractions.Record, sortKey, sortOrder string, favorites Favorites) []abstractions.Record {
	return Sorter{}.Sort(records, sortKey, sortOrder, favorites)
}

// Sort returns a stably sorted copy of records. Market cap rank, oldest and
// the fallback composite key ascend by default, every other key descends;
// sortOrder "asc" inverts that default.
func (s Sorter) Sort(records []abstractions.Record, sortKey, sortOrder string, favorites Favorites) []abstractions.Record {
	out := make([]abstractions.Record, len(records))
	copy(out, records)

	plan := s.plan(sortKey, favorites)
	descending := plan.descending
	if strings.EqualFold(sortOrder, OrderAsc) {
		descending = !descending
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := plan.compare(out[i], out[j])
		if descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

func (s Sorter) plan(sortKey string, favorites Favorites) sortPlan {
	switch sortKey {
	case SortMarketCap:
		return sortPlan{compare: byFloat("market_cap"), descending: true}
	case SortVolume:
		return sortPlan{compare: byFloat("trading_volume_24h"), descending: true}
	case SortPrice:
		return sortPlan{compare: byFloat("price"), descending: true}
	case SortPriceChange24h:
		return sortPlan{compare: byFloat("volume_24h_change_24h"), descending: true}
	case SortPriceChange7d:
		return sortPlan{compare: byFloat("price_change_7d"), descending: true}
	case SortMarketCapRank:
		return sortPlan{compare: s.byRank, descending: false}
	case SortAlphabetical:
		return sortPlan{compare: func(a, b abstractions.Record) int {
			return strings.Compare(a.Symbol(), b.Symbol())
		}, descending: true}
	case SortHalal:
		return sortPlan{compare: thenMarketCap(func(r abstractions.Record) bool {
			return utils.SafeBool(r["is_halal"], false)
		}), descending: true}
	case SortFavorites:
		return sortPlan{compare: thenMarketCap(func(r abstractions.Record) bool {
			return favorites.Contains(TokenID(r))
		}), descending: true}
	case SortNewest:
		return sortPlan{compare: byCreatedAt, descending: true}
	case SortOldest:
		return sortPlan{compare: byCreatedAt, descending: false}
	default:
		// rank ascending, then market cap descending
		return sortPlan{compare: func(a, b abstractions.Record) int {
			if c := s.byRank(a, b); c != 0 {
				return c
			}
			return -byFloat("market_cap")(a, b)
		}, descending: false}
	}
}

func (s Sorter) rank(r abstractions.Record) int64 {
	missing := s.MissingRank
	if missing == 0 {
		missing = DefaultMissingRank
	}
	return utils.SafeInt(r["market_cap_rank"], missing)
}

func (s Sorter) byRank(a, b abstractions.Record) int {
	return cmp.Compare(s.rank(a), s.rank(b))
}

func byFloat(field string) func(a, b abstractions.Record) int {
	return func(a, b abstractions.Record) int {
		return cmp.Compare(utils.SafeFloat(a[field], 0), utils.SafeFloat(b[field], 0))
	}
}

func byCreatedAt(a, b abstractions.Record) int {
	return compareTimestamps(a.CreatedAt(), b.CreatedAt())
}

// thenMarketCap orders by flag (false before true), then by market cap
func thenMarketCap(flag func(abstractions.Record) bool) func(a, b abstractions.Record) int {
	return func(a, b abstractions.Record) int {
		fa, fb := flag(a), flag(b)
		if fa != fb {
			if fb {
				return -1
			}
			return 1
		}
		return byFloat("market_cap")(a, b)
	}
}
