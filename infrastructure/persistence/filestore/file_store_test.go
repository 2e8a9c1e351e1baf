package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"liberandum-backend/infrastructure/persistence/abstractions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "cache.json"), zap.NewNop())
}

func TestStore_Lifecycle(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := newTestStore(t)
	entry := abstractions.Record{"id": "global", "data": `{"a":1}`, "ttl_hours": 1.0}

	// Act
	missing, err := store.Get(ctx, "global")
	require.NoError(t, err)
	_, err = store.Create(ctx, entry, false)
	require.NoError(t, err)
	created, err := store.Get(ctx, "global")
	require.NoError(t, err)

	_, err = store.Update(ctx, "global", abstractions.Record{"id": "global", "data": `{"a":2}`})
	require.NoError(t, err)
	updated, err := store.Get(ctx, "global")
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, "global")
	require.NoError(t, err)
	deletedAgain, err := store.Delete(ctx, "global")
	require.NoError(t, err)

	// Assert
	assert.Nil(t, missing)
	assert.Equal(t, entry, created)
	assert.Equal(t, `{"a":2}`, updated.String("data"))
	assert.NotContains(t, updated, "ttl_hours", "update replaces the whole entry")
	assert.True(t, deleted)
	assert.False(t, deletedAgain)
}

func TestStore_Create(t *testing.T) {
	t.Run("Should generate an id when autoID is set", func(t *testing.T) {
		// Arrange
		store := newTestStore(t)

		// Act
		rec, err := store.Create(context.Background(), abstractions.Record{"data": "x"}, true)

		// Assert
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID())
	})

	t.Run("Should reject a missing id without autoID", func(t *testing.T) {
		// Arrange
		store := newTestStore(t)

		// Act
		_, err := store.Create(context.Background(), abstractions.Record{"data": "x"}, false)

		// Assert
		assert.Error(t, err)
	})
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	first := NewStore(path, zap.NewNop())
	_, err := first.Create(context.Background(), abstractions.Record{"id": "k", "v": "1"}, false)
	require.NoError(t, err)

	// Act
	rec, err := NewStore(path, zap.NewNop()).Get(context.Background(), "k")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "1", rec.String("v"))
	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "temp file must be renamed away")
}

func TestStore_CorruptFileReadsAsEmpty(t *testing.T) {
	// Arrange
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	// Act
	rec, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	_, createErr := store.Create(context.Background(), abstractions.Record{"id": "k"}, false)

	// Assert
	assert.Nil(t, rec)
	assert.NoError(t, createErr)
}

func TestStore_ConcurrentWriters(t *testing.T) {
	// Arrange
	store := newTestStore(t)
	var wg sync.WaitGroup

	// Act
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Create(context.Background(), abstractions.Record{"id": string(rune('a' + i))}, false)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Assert
	for i := 0; i < 20; i++ {
		rec, err := store.Get(context.Background(), string(rune('a'+i)))
		require.NoError(t, err)
		assert.NotNil(t, rec)
	}
}
