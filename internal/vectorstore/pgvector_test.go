package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/testutil"
)

func TestPgvectorStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-based test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewPgvectorStore(ctx, tdb.Pool, testutil.Logger())
	require.NoError(t, err)

	vec := func(axis int) []float32 {
		v := make([]float32, 768)
		v[axis] = 1
		return v
	}

	t.Run("upsert and search with owner filter", func(t *testing.T) {
		err := store.UpsertBatch(ctx, []Document{
			{ID: "a", Content: "alpha", Embedding: vec(0), Metadata: map[string]string{"owner_id": "user-1"}},
			{ID: "b", Content: "beta", Embedding: vec(1), Metadata: map[string]string{"owner_id": "user-1"}},
			{ID: "c", Content: "gamma", Embedding: vec(0), Metadata: map[string]string{"owner_id": "user-2"}},
		})
		require.NoError(t, err)

		results, err := store.Search(ctx, vec(0), SearchOptions{
			TopK:      10,
			Threshold: 0.5,
			Filter:    map[string]string{"owner_id": "user-1"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a", results[0].Document.ID)
		assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, Document{
			ID: "a", Content: "alpha v2", Embedding: vec(0),
			Metadata: map[string]string{"owner_id": "user-1"},
		}))

		results, err := store.Search(ctx, vec(0), SearchOptions{
			TopK:   1,
			Filter: map[string]string{"owner_id": "user-1"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "alpha v2", results[0].Document.Content)
	})

	t.Run("results ordered by similarity", func(t *testing.T) {
		results, err := store.Search(ctx, vec(0), SearchOptions{TopK: 10})
		require.NoError(t, err)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("delete removes rows", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, []string{"a", "b", "c"}))

		results, err := store.Search(ctx, vec(0), SearchOptions{TopK: 10})
		require.NoError(t, err)
		assert.Empty(t, results)

		require.NoError(t, store.Delete(ctx, []string{"missing"}))
	})
}
