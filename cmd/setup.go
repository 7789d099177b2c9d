package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallhq/recall/db"
	"github.com/recallhq/recall/internal/chunkstore"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/database"
	"github.com/recallhq/recall/internal/embedding"
	"github.com/recallhq/recall/internal/provider"
	"github.com/recallhq/recall/internal/rag"
	"github.com/recallhq/recall/internal/trace"
	"github.com/recallhq/recall/internal/vectorstore"
)

// newService wires the full pipeline from configuration: embedder, vector
// backend, chunk row store, and trace recorder. The returned cleanup
// releases the pool and flushes pending spans; always call it.
func newService(ctx context.Context) (*rag.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.Default()

	embedder, err := provider.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// The memory backend keeps chunk rows in process; the durable backends
	// share the migrated Postgres schema for rows.
	var (
		pool *pgxpool.Pool
		rows chunkstore.Store
	)
	if cfg.VectorBackend == config.BackendMemory {
		rows = chunkstore.NewMemoryStore()
	} else {
		connURL := cfg.Postgres.ConnURL()
		if err := db.Migrate(connURL); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err = database.NewPool(ctx, connURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		rows = chunkstore.NewPostgresStore(pool, logger)
	}

	store, err := vectorstore.New(ctx, cfg, vectorstore.Deps{Pool: pool, Logger: logger})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize vector backend: %w", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		cleanups = append(cleanups, func() { _ = closer.Close() })
	}

	recorder := trace.Recorder(trace.NewNop())
	if cfg.Trace.Enabled {
		recorder = trace.NewOTLP(ctx, trace.Config{
			Endpoint:    cfg.Trace.Endpoint,
			ServiceName: cfg.Trace.ServiceName,
			Environment: cfg.Trace.Environment,
		}, logger)
		cleanups = append(cleanups, func() { _ = recorder.Shutdown(context.Background()) })
	}

	svc := rag.New(
		embedding.New(embedder, cfg.EmbedRPS, logger),
		store,
		rows,
		cfg.Retrieval,
		rag.WithLogger(logger),
		rag.WithRecorder(recorder),
	)

	return svc, cleanup, nil
}
