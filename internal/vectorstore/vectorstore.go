// Package vectorstore defines the pluggable similarity-search backend used
// by the retrieval pipeline.
//
// Three backends implement the Store interface: an in-process chromem-go
// collection, PostgreSQL with the pgvector extension, and a managed Qdrant
// index over REST. The backend is selected once from configuration at
// startup (see New) and exposed to callers only through the interface; the
// backend name is surfaced solely for logging.
//
// A backend that cannot initialize fails fast. No backend is permitted to
// masquerade as a working store with zero capacity.
package vectorstore

import "context"

// Document is the search-optimized projection of a chunk: the id, the text,
// its embedding, and the metadata used for filtering. It is mirrored from
// the chunk row at upsert time and lives as long as the chunk does.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Result pairs a matched document with its similarity score.
type Result struct {
	Document Document
	Score    float32
}

// SearchOptions bounds a similarity search.
//
// Filter is an exact-match conjunction over document metadata: a document
// matches only if every filter key is present with the same value. An
// absent key never matches a non-empty filter value.
type SearchOptions struct {
	TopK      int
	Threshold float32
	Filter    map[string]string
}

// Store is the vector search backend contract.
//
// Upsert is idempotent by document ID: re-upserting an ID replaces content,
// embedding, and metadata. Delete of a non-existent ID is a no-op.
type Store interface {
	// Name identifies the backend for logging. Never use it to branch on
	// backend-specific behavior.
	Name() string

	Upsert(ctx context.Context, doc Document) error
	UpsertBatch(ctx context.Context, docs []Document) error

	// Search returns at most opts.TopK results with score >= opts.Threshold
	// matching opts.Filter, sorted descending by score.
	Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]Result, error)

	Delete(ctx context.Context, ids []string) error
}

// matchesFilter reports whether metadata satisfies every filter entry.
func matchesFilter(metadata map[string]string, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
