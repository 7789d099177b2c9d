package chunkstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore persists chunk rows in the chunks table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a chunk store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

const chunkColumns = `id, document_id, attachment_id, chunk_index, content, embedding, metadata, created_at`

// Insert implements Store. All rows go out in one batched round trip; a
// duplicate ID fails the whole batch.
func (s *PostgresStore) Insert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for chunk %q: %w", c.ID, err)
		}
		batch.Queue(`
			INSERT INTO chunks (id, document_id, attachment_id, chunk_index, content, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.DocumentID, nullIfEmpty(c.AttachmentID), c.ChunkIndex,
			c.Content, pgvector.NewVector(c.Embedding), metadataJSON)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Warn("failed to close batch results", "error", err)
		}
	}()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
	}

	s.logger.Debug("inserted chunks", "count", len(chunks))
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (Chunk, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, id)

	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chunk{}, fmt.Errorf("chunk %q: %w", id, ErrChunkNotFound)
		}
		return Chunk{}, fmt.Errorf("failed to get chunk %q: %w", id, err)
	}
	return c, nil
}

// ListByOwner implements Store.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE metadata->>'owner_id' = $1
		 ORDER BY created_at, chunk_index`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks for owner: %w", err)
	}
	defer rows.Close()
	return collectChunks(rows)
}

// ListByDocument implements Store.
func (s *PostgresStore) ListByDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks for document %q: %w", documentID, err)
	}
	defer rows.Close()
	return collectChunks(rows)
}

// DeleteByDocument implements Store.
func (s *PostgresStore) DeleteByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM chunks WHERE document_id = $1 RETURNING id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete chunks for document %q: %w", documentID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete iteration failed: %w", err)
	}

	s.logger.Debug("deleted document chunks", "document_id", documentID, "count", len(ids))
	return ids, nil
}

// CountByOwner implements Store.
func (s *PostgresStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE metadata->>'owner_id' = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks for owner: %w", err)
	}
	return count, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanChunk(row pgx.Row) (Chunk, error) {
	var (
		c            Chunk
		attachmentID *string
		embedding    pgvector.Vector
		metadataJSON []byte
	)
	err := row.Scan(&c.ID, &c.DocumentID, &attachmentID, &c.ChunkIndex,
		&c.Content, &embedding, &metadataJSON, &c.CreatedAt)
	if err != nil {
		return Chunk{}, err
	}
	if attachmentID != nil {
		c.AttachmentID = *attachmentID
	}
	c.Embedding = embedding.Slice()
	if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
		return Chunk{}, fmt.Errorf("failed to parse metadata for chunk %q: %w", c.ID, err)
	}
	return c, nil
}

func collectChunks(rows pgx.Rows) ([]Chunk, error) {
	var chunks []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chunk iteration failed: %w", err)
	}
	return chunks, nil
}
