package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/testutil"
)

func unitVec(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore("", nil, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMemoryStore_UpsertAndSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestMemoryStore(t)

	docs := []Document{
		{ID: "a", Content: "alpha", Embedding: unitVec(4, 0), Metadata: map[string]string{"owner_id": "user-1"}},
		{ID: "b", Content: "beta", Embedding: unitVec(4, 1), Metadata: map[string]string{"owner_id": "user-1"}},
		{ID: "c", Content: "gamma", Embedding: unitVec(4, 0), Metadata: map[string]string{"owner_id": "user-2"}},
	}
	require.NoError(t, store.UpsertBatch(ctx, docs))

	results, err := store.Search(ctx, unitVec(4, 0), SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "a", results[0].Document.ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestMemoryStore_SearchEmptyCollection(t *testing.T) {
	t.Parallel()

	store := newTestMemoryStore(t)

	results, err := store.Search(context.Background(), unitVec(4, 0), SearchOptions{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_FilterIsConjunction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestMemoryStore(t)

	require.NoError(t, store.UpsertBatch(ctx, []Document{
		{ID: "a", Content: "alpha", Embedding: unitVec(4, 0),
			Metadata: map[string]string{"owner_id": "user-1", "source_type": "document"}},
		{ID: "b", Content: "beta", Embedding: unitVec(4, 0),
			Metadata: map[string]string{"owner_id": "user-1", "source_type": "message"}},
		{ID: "c", Content: "gamma", Embedding: unitVec(4, 0),
			Metadata: map[string]string{"owner_id": "user-2", "source_type": "document"}},
	}))

	results, err := store.Search(ctx, unitVec(4, 0), SearchOptions{
		TopK:   10,
		Filter: map[string]string{"owner_id": "user-1", "source_type": "document"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document.ID)
}

func TestMemoryStore_OwnerFilterIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestMemoryStore(t)

	require.NoError(t, store.UpsertBatch(ctx, []Document{
		{ID: "mine", Content: "my note", Embedding: unitVec(4, 0), Metadata: map[string]string{"owner_id": "user-1"}},
		{ID: "theirs", Content: "their note", Embedding: unitVec(4, 0), Metadata: map[string]string{"owner_id": "user-2"}},
	}))

	results, err := store.Search(ctx, unitVec(4, 0), SearchOptions{
		TopK:   10,
		Filter: map[string]string{"owner_id": "user-1"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].Document.ID)
}

func TestMemoryStore_UpsertReplacesByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestMemoryStore(t)

	require.NoError(t, store.Upsert(ctx, Document{
		ID: "a", Content: "old", Embedding: unitVec(4, 0),
		Metadata: map[string]string{"owner_id": "user-1"},
	}))
	require.NoError(t, store.Upsert(ctx, Document{
		ID: "a", Content: "new", Embedding: unitVec(4, 0),
		Metadata: map[string]string{"owner_id": "user-1"},
	}))

	results, err := store.Search(ctx, unitVec(4, 0), SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Document.Content)
}

func TestMemoryStore_ThresholdFiltersLowScores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestMemoryStore(t)

	// b is orthogonal to the query, so its cosine similarity is 0.
	require.NoError(t, store.UpsertBatch(ctx, []Document{
		{ID: "a", Content: "close", Embedding: unitVec(4, 0)},
		{ID: "b", Content: "far", Embedding: unitVec(4, 1)},
	}))

	results, err := store.Search(ctx, unitVec(4, 0), SearchOptions{TopK: 10, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document.ID)
}

func TestMemoryStore_TopKClampedToCollectionSize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestMemoryStore(t)

	require.NoError(t, store.Upsert(ctx, Document{ID: "only", Content: "one", Embedding: unitVec(4, 0)}))

	results, err := store.Search(ctx, unitVec(4, 0), SearchOptions{TopK: 50})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestMemoryStore(t)

	require.NoError(t, store.UpsertBatch(ctx, []Document{
		{ID: "a", Content: "alpha", Embedding: unitVec(4, 0)},
		{ID: "b", Content: "beta", Embedding: unitVec(4, 0)},
	}))

	require.NoError(t, store.Delete(ctx, []string{"a"}))

	results, err := store.Search(ctx, unitVec(4, 0), SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Document.ID)

	// Deleting nothing is a no-op.
	require.NoError(t, store.Delete(ctx, nil))
}

func TestMemoryStore_PersistencePathLocked(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/store"

	first, err := NewMemoryStore(path, nil, testutil.Logger())
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	_, err = NewMemoryStore(path, nil, testutil.Logger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		metadata map[string]string
		filter   map[string]string
		want     bool
	}{
		{
			name:     "empty filter matches everything",
			metadata: map[string]string{"owner_id": "user-1"},
			filter:   nil,
			want:     true,
		},
		{
			name:     "exact match",
			metadata: map[string]string{"owner_id": "user-1"},
			filter:   map[string]string{"owner_id": "user-1"},
			want:     true,
		},
		{
			name:     "value mismatch",
			metadata: map[string]string{"owner_id": "user-1"},
			filter:   map[string]string{"owner_id": "user-2"},
			want:     false,
		},
		{
			name:     "absent key never matches",
			metadata: map[string]string{},
			filter:   map[string]string{"owner_id": "user-1"},
			want:     false,
		},
		{
			name:     "all keys must match",
			metadata: map[string]string{"owner_id": "user-1", "source_type": "message"},
			filter:   map[string]string{"owner_id": "user-1", "source_type": "document"},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, matchesFilter(tt.metadata, tt.filter))
		})
	}
}
