package market

import (
	"testing"

	"liberandum-backend/infrastructure/persistence/abstractions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stat(id, symbol, updatedAt string, approved bool) abstractions.Record {
	return abstractions.Record{
		"id":         id,
		"symbol":     symbol,
		"updated_at": updatedAt,
		"approved":   approved,
	}
}

func ids(records []abstractions.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func TestCanonicalRecords(t *testing.T) {
	t.Run("Should keep the most recently updated record per symbol", func(t *testing.T) {
		// Arrange
		records := []abstractions.Record{
			stat("a", "BTC", "2024-01-01T00:00:00Z", true),
			stat("b", "btc", "2024-03-01T00:00:00Z", true),
			stat("c", "ETH", "2024-02-01T00:00:00Z", true),
		}

		// Act
		got := CanonicalRecords(records)

		// Assert
		assert.Equal(t, []string{"b", "c"}, ids(got))
	})

	t.Run("Should drop records without a symbol", func(t *testing.T) {
		// Arrange
		unnamed := stat("b", "", "2024-02-01T00:00:00Z", true)
		delete(unnamed, "symbol")
		records := []abstractions.Record{
			stat("a", "", "2024-01-01T00:00:00Z", true),
			unnamed,
			stat("c", "ETH", "2024-02-01T00:00:00Z", true),
		}

		// Act
		got := CanonicalRecords(records)

		// Assert
		assert.Equal(t, []string{"c"}, ids(got))
	})

	t.Run("Should never return unapproved records regardless of recency", func(t *testing.T) {
		// Arrange
		missing := stat("c", "BTC", "2024-09-01T00:00:00Z", true)
		delete(missing, "approved")
		records := []abstractions.Record{
			stat("a", "BTC", "2024-01-01T00:00:00Z", true),
			stat("b", "BTC", "2024-06-01T00:00:00Z", false),
			missing,
		}

		// Act
		got := CanonicalRecords(records)

		// Assert
		assert.Equal(t, []string{"a"}, ids(got))
	})

	t.Run("Should drop deleted records before choosing", func(t *testing.T) {
		// Arrange
		deleted := stat("b", "BTC", "2024-06-01T00:00:00Z", true)
		deleted["is_deleted"] = true
		records := []abstractions.Record{stat("a", "BTC", "2024-01-01T00:00:00Z", true), deleted}

		// Act
		got := CanonicalRecords(records)

		// Assert
		assert.Equal(t, []string{"a"}, ids(got))
	})

	t.Run("Should break equal timestamps by ascending id", func(t *testing.T) {
		// Arrange
		records := []abstractions.Record{
			stat("z", "SOL", "2024-01-01T00:00:00Z", true),
			stat("m", "SOL", "2024-01-01T00:00:00Z", true),
		}

		// Act
		got := CanonicalRecords(records)

		// Assert
		assert.Equal(t, []string{"m"}, ids(got))
	})

	t.Run("Should compare mixed precision timestamps chronologically", func(t *testing.T) {
		// Arrange
		records := []abstractions.Record{
			stat("a", "ADA", "2024-01-01T10:00:00.5Z", true),
			stat("b", "ADA", "2024-01-01T10:00:00.123456Z", true),
		}

		// Act
		got := CanonicalRecords(records)

		// Assert
		assert.Equal(t, []string{"a"}, ids(got))
	})

	t.Run("Should accept string booleans for the approval flag", func(t *testing.T) {
		// Arrange
		r := stat("a", "DOT", "2024-01-01T00:00:00Z", true)
		r["approved"] = "yes"

		// Act
		got := CanonicalRecords([]abstractions.Record{r})

		// Assert
		assert.Len(t, got, 1)
	})
}

func TestCanonicalRecords_Idempotent(t *testing.T) {
	// Arrange
	records := []abstractions.Record{
		stat("a", "BTC", "2024-01-01T00:00:00Z", true),
		stat("b", "BTC", "2024-02-01T00:00:00Z", true),
		stat("c", "BTC", "2024-02-01T00:00:00Z", true),
		stat("d", "ETH", "2024-02-01T00:00:00Z", false),
		stat("e", "ETH", "2023-02-01T00:00:00Z", true),
	}

	// Act
	once := CanonicalRecords(records)
	twice := CanonicalRecords(once)

	// Assert
	require.Len(t, once, 2)
	assert.Equal(t, ids(once), ids(twice))
	assert.Equal(t, "a", records[0].ID(), "input order is untouched")
}

func TestTokensBySymbol(t *testing.T) {
	// Arrange
	tokens := []abstractions.Record{
		{"id": "1", "symbol": "btc", "avatar_image": "old"},
		{"id": "2", "symbol": "BTC", "avatar_image": "new"},
		{"id": "3", "symbol": "ETH", "is_deleted": true},
		{"id": "4"},
	}

	// Act
	index := TokensBySymbol(tokens)

	// Assert
	assert.Len(t, index, 1)
	assert.Equal(t, "new", index["BTC"].String("avatar_image"))
}
