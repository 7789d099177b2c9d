// Package chunkstore persists chunk rows, the durable record behind the
// search index.
//
// The vector store holds a projection of these rows optimized for
// similarity search; this package is the source of truth for chunk content,
// ordering within a document, and ownership. Rows are written during
// ingestion and read back for legacy brute-force retrieval, document
// deletion, and corpus statistics.
package chunkstore

import (
	"context"
	"errors"
	"time"
)

// ErrChunkNotFound indicates no chunk exists with the requested ID.
var ErrChunkNotFound = errors.New("chunk not found")

// MetadataOwnerID is the metadata key carrying the owning user.
// Every persisted chunk has it; retrieval filters on it.
const MetadataOwnerID = "owner_id"

// Chunk is one stored fragment of a source document or message.
type Chunk struct {
	ID           string
	DocumentID   string
	AttachmentID string
	ChunkIndex   int
	Content      string
	Embedding    []float32
	Metadata     map[string]string
	CreatedAt    time.Time
}

// OwnerID returns the owning user recorded in the chunk metadata.
func (c Chunk) OwnerID() string {
	return c.Metadata[MetadataOwnerID]
}

// Store is the chunk row persistence contract.
type Store interface {
	// Insert stores chunks in one operation. Chunk IDs must be unique;
	// re-inserting an existing ID is an error, not a replace.
	Insert(ctx context.Context, chunks []Chunk) error

	// Get returns the chunk with the given ID or ErrChunkNotFound.
	Get(ctx context.Context, id string) (Chunk, error)

	// ListByOwner returns every chunk owned by ownerID, ordered by
	// creation time then chunk index.
	ListByOwner(ctx context.Context, ownerID string) ([]Chunk, error)

	// ListByDocument returns the chunks of one document in chunk order.
	ListByDocument(ctx context.Context, documentID string) ([]Chunk, error)

	// DeleteByDocument removes all chunks of a document and returns the
	// IDs removed so callers can cascade into the vector store. Deleting
	// an unknown document returns an empty slice.
	DeleteByDocument(ctx context.Context, documentID string) ([]string, error)

	// CountByOwner returns the number of chunks owned by ownerID.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}
