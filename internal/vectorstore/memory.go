package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gofrs/flock"
	chromem "github.com/philippgille/chromem-go"
)

// MemoryStore is the in-process backend built on a chromem-go collection.
//
// With a persistence path it survives restarts; the path is guarded by a
// file lock so two processes never write the same collection concurrently.
type MemoryStore struct {
	collection *chromem.Collection
	lock       *flock.Flock
	logger     *slog.Logger
}

const memoryCollectionName = "recall-chunks"

// NewMemoryStore creates the chromem-backed store.
//
// path enables on-disk persistence; empty means purely in-memory.
// embedFunc is only used for documents added without a precomputed
// embedding, which the ingestion pipeline never does; it may be nil.
func NewMemoryStore(path string, embedFunc chromem.EmbeddingFunc, logger *slog.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var db *chromem.DB
	var lock *flock.Flock

	if path == "" {
		db = chromem.NewDB()
	} else {
		lock = flock.New(path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock vector store path: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("vector store path %q is locked by another process", path)
		}

		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("failed to open persistent vector store: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(memoryCollectionName, nil, embedFunc)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &MemoryStore{collection: collection, lock: lock, logger: logger}, nil
}

// Name implements Store.
func (*MemoryStore) Name() string { return "memory" }

// Upsert implements Store. chromem has no replace primitive, so an existing
// ID is deleted first to keep upsert idempotent.
func (s *MemoryStore) Upsert(ctx context.Context, doc Document) error {
	if err := s.collection.Delete(ctx, nil, nil, doc.ID); err != nil {
		return fmt.Errorf("failed to replace document %q: %w", doc.ID, err)
	}

	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata:  doc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to add document %q: %w", doc.ID, err)
	}
	return nil
}

// UpsertBatch implements Store.
func (s *MemoryStore) UpsertBatch(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		if err := s.Upsert(ctx, doc); err != nil {
			return err
		}
	}
	s.logger.Debug("upserted batch", "backend", s.Name(), "count", len(docs))
	return nil
}

// Search implements Store.
func (s *MemoryStore) Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]Result, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem rejects nResults above the collection size. Filtering happens
	// inside the query, so TopK is the only cap needed.
	n := min(opts.TopK, count)
	if n <= 0 {
		n = count
	}

	var where map[string]string
	if len(opts.Filter) > 0 {
		where = opts.Filter
	}

	hits, err := s.collection.QueryEmbedding(ctx, queryEmbedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < opts.Threshold {
			continue
		}
		results = append(results, Result{
			Document: Document{
				ID:        h.ID,
				Content:   h.Content,
				Embedding: h.Embedding,
				Metadata:  h.Metadata,
			},
			Score: h.Similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// Delete implements Store. Missing IDs are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Close releases the persistence lock, if any.
func (s *MemoryStore) Close() error {
	if s.lock != nil {
		return s.lock.Unlock()
	}
	return nil
}
