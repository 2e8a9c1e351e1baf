package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"liberandum-backend/infrastructure/persistence/abstractions"
	apperrors "liberandum-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepository(client DBClient) *GenericRepository {
	return NewGenericRepository(client, "test-table", zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
}

func TestGenericRepository_CreateAndGet(t *testing.T) {
	t.Run("Should round trip with injected id and timestamps", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		repo := newTestRepository(newMemoryTable(100))
		input := abstractions.Record{"symbol": "BTC", "market_cap": 1000.0, "approved": true}

		// Act
		created, err := repo.Create(ctx, input, true)
		require.NoError(t, err)
		fetched, err := repo.GetByID(ctx, created.ID())

		// Assert
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.NotEmpty(t, created.ID())
		assert.Equal(t, "2024-03-01T12:00:00.000000Z", fetched.CreatedAt())
		assert.Equal(t, "2024-03-01T12:00:00.000000Z", fetched.UpdatedAt())
		assert.Equal(t, created, fetched)

		for k, v := range input {
			assert.Equal(t, v, fetched[k], k)
		}
		assert.NotContains(t, input, "id", "caller's record must not be mutated")
	})

	t.Run("Should keep caller supplied id and timestamps", func(t *testing.T) {
		// Arrange
		repo := newTestRepository(newMemoryTable(100))
		input := abstractions.Record{"id": "fixed", "created_at": "2020-01-01T00:00:00Z"}

		// Act
		created, err := repo.Create(context.Background(), input, true)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "fixed", created.ID())
		assert.Equal(t, "2020-01-01T00:00:00Z", created.CreatedAt())
	})

	t.Run("Should reject a record without id when autoID is off", func(t *testing.T) {
		// Arrange
		repo := newTestRepository(newMemoryTable(100))

		// Act
		_, err := repo.Create(context.Background(), abstractions.Record{"symbol": "ETH"}, false)

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Should return nil for a missing id", func(t *testing.T) {
		// Arrange
		repo := newTestRepository(newMemoryTable(100))

		// Act
		rec, err := repo.GetByID(context.Background(), "missing")

		// Assert
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestGenericRepository_UpdateByID(t *testing.T) {
	t.Run("Should update a reserved-word field and keep id", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		repo := newTestRepository(newMemoryTable(100))
		created, err := repo.Create(ctx, abstractions.Record{"id": "t1", "status": "draft", "symbol": "SOL"}, false)
		require.NoError(t, err)

		// Act
		updated, err := repo.UpdateByID(ctx, created.ID(), abstractions.Record{"status": "active", "id": "hijack"})
		require.NoError(t, err)
		fetched, err := repo.GetByID(ctx, "t1")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "active", updated.String("status"))
		assert.Equal(t, "active", fetched.String("status"))
		assert.Equal(t, "t1", fetched.ID())
		assert.Equal(t, "SOL", fetched.String("symbol"))
		assert.Equal(t, created.CreatedAt(), fetched.CreatedAt())

		hijacked, err := repo.GetByID(ctx, "hijack")
		require.NoError(t, err)
		assert.Nil(t, hijacked)
	})

	t.Run("Should degrade to a read when nothing changes", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		client := new(mockDBClient)
		item := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "t1"}}
		client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: item}, nil)
		repo := newTestRepository(client)

		// Act
		rec, err := repo.UpdateByID(ctx, "t1", abstractions.Record{"id": "t1", "created_at": "x"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "t1", rec.ID())
		client.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
		client.AssertExpectations(t)
	})

	t.Run("Should return nil when the record does not exist", func(t *testing.T) {
		// Arrange
		repo := newTestRepository(newMemoryTable(100))

		// Act
		rec, err := repo.UpdateByID(context.Background(), "ghost", abstractions.Record{"price": 2.0})

		// Assert
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestGenericRepository_DeleteByID(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := newTestRepository(newMemoryTable(100))
	_, err := repo.Create(ctx, abstractions.Record{"id": "d1"}, false)
	require.NoError(t, err)

	// Act
	existed, err := repo.DeleteByID(ctx, "d1")
	require.NoError(t, err)
	again, err := repo.DeleteByID(ctx, "d1")

	// Assert
	require.NoError(t, err)
	assert.True(t, existed)
	assert.False(t, again)
}

func seed(t *testing.T, repo *GenericRepository, n int, fill func(i int) abstractions.Record) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := abstractions.Record{"id": fmt.Sprintf("id-%03d", i)}
		if fill != nil {
			for k, v := range fill(i) {
				rec[k] = v
			}
		}
		_, err := repo.Create(context.Background(), rec, false)
		require.NoError(t, err)
	}
}

func TestGenericRepository_Scan(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"Should read every page when limit is zero", 0, 23},
		{"Should stop at the limit across pages", 12, 12},
		{"Should return everything when limit exceeds table size", 100, 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := newTestRepository(newMemoryTable(5))
			seed(t, repo, 23, nil)

			// Act
			records, err := repo.ListAll(context.Background(), tt.limit)

			// Assert
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestGenericRepository_FindByField(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := newTestRepository(newMemoryTable(4))
	seed(t, repo, 10, func(i int) abstractions.Record {
		symbol := "ETH"
		if i%3 == 0 {
			symbol = "BTC"
		}
		return abstractions.Record{"symbol": symbol, "approved": i%2 == 0}
	})

	t.Run("Should filter across every scan page", func(t *testing.T) {
		// Act
		records, err := repo.FindByField(ctx, "symbol", "BTC", "")

		// Assert
		require.NoError(t, err)
		assert.Len(t, records, 4)
		for _, rec := range records {
			assert.Equal(t, "BTC", rec.Symbol())
		}
	})

	t.Run("Should query the index when one is named", func(t *testing.T) {
		// Act
		records, err := repo.FindByField(ctx, "symbol", "ETH", "symbol-index")

		// Assert
		require.NoError(t, err)
		assert.Len(t, records, 6)
	})

	t.Run("Should AND multiple fields", func(t *testing.T) {
		// Act
		records, err := repo.FindByMultipleFields(ctx, map[string]interface{}{"symbol": "BTC", "approved": true})

		// Assert
		require.NoError(t, err)
		assert.Len(t, records, 2) // id-000, id-006
	})

	t.Run("Should return an empty slice when nothing matches", func(t *testing.T) {
		// Act
		records, err := repo.FindByField(ctx, "symbol", "DOGE", "")

		// Assert
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestGenericRepository_BulkCreate(t *testing.T) {
	t.Run("Should write in batches of 25 and backfill ids", func(t *testing.T) {
		// Arrange
		table := newMemoryTable(1000)
		repo := newTestRepository(table)
		items := make([]abstractions.Record, 60)
		for i := range items {
			items[i] = abstractions.Record{"symbol": fmt.Sprintf("T%d", i)}
		}

		// Act
		err := repo.BulkCreate(context.Background(), items)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []int{25, 25, 10}, table.batchSizes)
		total, err := repo.CountTotal(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 60, total)
	})

	t.Run("Should fail the call on a batch error", func(t *testing.T) {
		// Arrange
		client := new(mockDBClient)
		client.On("BatchWriteItem", mock.Anything, mock.Anything).
			Return(&dynamodb.BatchWriteItemOutput{}, nil).Once()
		client.On("BatchWriteItem", mock.Anything, mock.Anything).
			Return(nil, errors.New("throttled")).Once()
		repo := newTestRepository(client)
		items := make([]abstractions.Record, 30)
		for i := range items {
			items[i] = abstractions.Record{}
		}

		// Act
		err := repo.BulkCreate(context.Background(), items)

		// Assert
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase))
		client.AssertNumberOfCalls(t, "BatchWriteItem", 2)
	})

	t.Run("Should fail when items come back unprocessed", func(t *testing.T) {
		// Arrange
		client := new(mockDBClient)
		client.On("BatchWriteItem", mock.Anything, mock.Anything).Return(&dynamodb.BatchWriteItemOutput{
			UnprocessedItems: map[string][]types.WriteRequest{"test-table": {{}}},
		}, nil)
		repo := newTestRepository(client)

		// Act
		err := repo.BulkCreate(context.Background(), []abstractions.Record{{}})

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unprocessed")
	})
}

func TestGenericRepository_StoreFailure(t *testing.T) {
	// Arrange
	client := new(mockDBClient)
	client.On("Scan", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	repo := newTestRepository(client)

	// Act
	records, err := repo.Scan(context.Background(), 10)

	// Assert
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase))
}

func TestGenericRepository_GetStats(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := newTestRepository(newMemoryTable(3))
	seed(t, repo, 5, func(i int) abstractions.Record {
		rec := abstractions.Record{"created_at": fmt.Sprintf("2024-01-0%dT00:00:00Z", i+1)}
		if i < 2 {
			rec["logo"] = "x.png"
		}
		return rec
	})

	// Act
	stats, err := repo.GetStats(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalItems)
	assert.Equal(t, 2, stats.FieldCounts["logo"])
	assert.Equal(t, 5, stats.FieldCounts["id"])
	assert.Equal(t, "2024-01-01T00:00:00Z", stats.OldestCreatedAt)
	assert.Equal(t, "2024-01-05T00:00:00Z", stats.NewestCreatedAt)
}
