package market

import (
	"sort"
	"strings"
	"time"

	"liberandum-backend/infrastructure/persistence/abstractions"
)

// CanonicalRecords collapses statistics records to one per business key.
// Deleted and unapproved records are dropped first; of the rest, the most
// recently updated record per upper-cased symbol wins, with equal update
// times resolved by ascending id. Records without a symbol have no business
// key and are dropped. The input slice is not modified.
func CanonicalRecords(records []abstractions.Record) []abstractions.Record {
	live := make([]abstractions.Record, 0, len(records))
	for _, r := range records {
		if r.IsDeleted() || !r.IsApproved() {
			continue
		}
		live = append(live, r)
	}

	sort.SliceStable(live, func(i, j int) bool {
		if c := compareTimestamps(live[i].UpdatedAt(), live[j].UpdatedAt()); c != 0 {
			return c > 0
		}
		return live[i].ID() < live[j].ID()
	})

	seen := make(map[string]struct{}, len(live))
	out := make([]abstractions.Record, 0, len(live))
	for _, r := range live {
		key := r.Symbol()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// TokensBySymbol indexes descriptive records by upper-cased symbol, skipping
// deleted ones. Later records overwrite earlier ones.
func TokensBySymbol(tokens []abstractions.Record) map[string]abstractions.Record {
	index := make(map[string]abstractions.Record, len(tokens))
	for _, t := range tokens {
		if t.IsDeleted() {
			continue
		}
		if sym := t.Symbol(); sym != "" {
			index[sym] = t
		}
	}
	return index
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareTimestamps orders ISO-8601 strings chronologically when both parse
// and lexically otherwise. Missing values sort first.
func compareTimestamps(a, b string) int {
	ta, okA := parseTimestamp(a)
	tb, okB := parseTimestamp(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}
