package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	chromem "github.com/philippgille/chromem-go"

	"github.com/recallhq/recall/internal/config"
)

// Deps carries the backend-specific resources the factory may need.
// Only the resources for the configured backend are required: Pool for
// pgvector, EmbedFunc optionally for the memory backend.
type Deps struct {
	Pool      *pgxpool.Pool
	EmbedFunc chromem.EmbeddingFunc
	Logger    *slog.Logger
}

// New resolves the configured backend exactly once. Callers hold the
// returned Store for the life of the process; nothing re-reads the backend
// name after this point.
func New(ctx context.Context, cfg *config.Config, deps Deps) (Store, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	switch cfg.VectorBackend {
	case config.BackendMemory:
		return NewMemoryStore(cfg.MemoryPath, deps.EmbedFunc, deps.Logger)

	case config.BackendPgvector:
		if deps.Pool == nil {
			return nil, fmt.Errorf("pgvector backend requires a database pool")
		}
		return NewPgvectorStore(ctx, deps.Pool, deps.Logger)

	case config.BackendQdrant:
		return NewQdrantStore(ctx, QdrantConfig{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Dimension:  cfg.EmbedderDimension,
			Timeout:    cfg.Qdrant.Timeout,
		}, deps.Logger)

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidVectorBackend, cfg.VectorBackend)
	}
}
