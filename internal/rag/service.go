package rag

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/recallhq/recall/internal/chunkstore"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/embedding"
	"github.com/recallhq/recall/internal/trace"
	"github.com/recallhq/recall/internal/vectorstore"
)

// Service is the retrieval pipeline facade. Construct one per process with
// New and share it; it is safe for concurrent use as long as the injected
// stores are.
type Service struct {
	embedder *embedding.Service
	vectors  vectorstore.Store
	chunks   chunkstore.Store
	recorder trace.Recorder
	cfg      config.RetrievalConfig
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecorder sets the pipeline trace recorder. Defaults to a nop.
func WithRecorder(r trace.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// New creates the facade with explicit dependencies. The vector store must
// already be resolved (see vectorstore.New); the Service never selects or
// re-initializes a backend itself.
func New(embedder *embedding.Service, vectors vectorstore.Store, chunks chunkstore.Store, cfg config.RetrievalConfig, opts ...Option) *Service {
	s := &Service{
		embedder: embedder,
		vectors:  vectors,
		chunks:   chunks,
		recorder: trace.NewNop(),
		cfg:      withRetrievalDefaults(cfg),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "rag")
	return s
}

// withRetrievalDefaults fills zero-valued tuning parameters.
// Defaults favor recall; later stages do the precision work.
func withRetrievalDefaults(cfg config.RetrievalConfig) config.RetrievalConfig {
	if cfg.TopK <= 0 {
		cfg.TopK = 20
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.25
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = 60
	}
	if cfg.SemanticWeight <= 0 {
		cfg.SemanticWeight = 1.0
	}
	if cfg.KeywordWeight <= 0 {
		cfg.KeywordWeight = 1.0
	}
	if cfg.RerankBlend <= 0 || cfg.RerankBlend > 1 {
		cfg.RerankBlend = 0.7
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = 2000
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 100
	}
	if cfg.MinMessageLength <= 0 {
		cfg.MinMessageLength = 10
	}
	return cfg
}

// record emits one pipeline stage span covering [start, now).
func (s *Service) record(ctx context.Context, stage string, start time.Time, attrs ...attribute.KeyValue) {
	s.recorder.Record(ctx, stage, start, time.Now(), attrs...)
}
