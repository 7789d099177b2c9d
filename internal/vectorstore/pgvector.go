package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorStore is the PostgreSQL + pgvector backend.
//
// Documents live in the vector_documents table (see db/migrations); cosine
// distance drives ranking and the JSONB containment operator applies the
// metadata filter inside the query.
type PgvectorStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPgvectorStore creates the pgvector backend. The pool must have pgvector
// types registered (database.NewPool does this) and is verified with a ping
// so a misconfigured backend fails at startup, not at first search.
func NewPgvectorStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PgvectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pgvector backend unreachable: %w", err)
	}
	return &PgvectorStore{pool: pool, logger: logger}, nil
}

// Name implements Store.
func (*PgvectorStore) Name() string { return "pgvector" }

// Upsert implements Store.
func (s *PgvectorStore) Upsert(ctx context.Context, doc Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO vector_documents (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    embedding = EXCLUDED.embedding,
		    metadata = EXCLUDED.metadata`,
		doc.ID, doc.Content, pgvector.NewVector(doc.Embedding), metadataJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert document %q: %w", doc.ID, err)
	}
	return nil
}

// UpsertBatch implements Store. All rows go out in one batched round trip.
func (s *PgvectorStore) UpsertBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %q: %w", doc.ID, err)
		}
		batch.Queue(`
			INSERT INTO vector_documents (id, content, embedding, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET content = EXCLUDED.content,
			    embedding = EXCLUDED.embedding,
			    metadata = EXCLUDED.metadata`,
			doc.ID, doc.Content, pgvector.NewVector(doc.Embedding), metadataJSON)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Warn("failed to close batch results", "error", err)
		}
	}()

	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch upsert failed: %w", err)
		}
	}

	s.logger.Debug("upserted batch", "backend", s.Name(), "count", len(docs))
	return nil
}

// Search implements Store. The metadata filter is always passed through
// json.Marshal and bound as a parameter; never interpolate filter values.
func (s *PgvectorStore) Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]Result, error) {
	filter := opts.Filter
	if filter == nil {
		filter = map[string]string{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content, embedding, metadata,
		       1 - (embedding <=> $1) AS similarity
		FROM vector_documents
		WHERE metadata @> $2
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`,
		pgvector.NewVector(queryEmbedding), filterJSON, opts.Threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			doc          Document
			embedding    pgvector.Vector
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &embedding, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		doc.Embedding = embedding.Slice()
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", doc.ID, "error", err)
			doc.Metadata = map[string]string{}
		}
		results = append(results, Result{Document: doc, Score: float32(similarity)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search iteration failed: %w", err)
	}
	return results, nil
}

// Delete implements Store. Missing IDs are a no-op.
func (s *PgvectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM vector_documents WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}
