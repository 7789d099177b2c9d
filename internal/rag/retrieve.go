package rag

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/recallhq/recall/internal/chunkstore"
	"github.com/recallhq/recall/internal/embedding"
	"github.com/recallhq/recall/internal/trace"
	"github.com/recallhq/recall/internal/vectorstore"
)

// Retrieve embeds the query and searches the vector store scoped to the
// owner, hydrating matches back to full chunk rows.
//
// When the vector store errors or returns nothing, retrieval falls back to
// a brute-force scan over the owner's rows with the identical owner
// predicate. Retrieval never surfaces a hard failure: the worst case is an
// empty result.
func (s *Service) Retrieve(ctx context.Context, query string, opts RetrieveOptions) RetrievalResult {
	owner := normalizeOwner(opts.OwnerID)
	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = s.cfg.Threshold
	}

	start := time.Now()
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		// Without a query vector neither path can score candidates.
		s.logger.Warn("failed to embed query, returning empty result", "error", err)
		return RetrievalResult{}
	}

	results, err := s.vectors.Search(ctx, queryVec, vectorstore.SearchOptions{
		TopK:      topK,
		Threshold: threshold,
		Filter:    map[string]string{MetaOwnerID: owner},
	})
	if err != nil || len(results) == 0 {
		if err != nil {
			s.logger.Warn("vector search failed, using fallback",
				"backend", s.vectors.Name(), "error", err)
		}
		out := s.legacyFallback(ctx, queryVec, owner, topK, threshold)
		s.record(ctx, trace.StageRetrieve, start,
			attribute.Int("result_count", len(out.Chunks)),
			attribute.Bool("fallback", true))
		return out
	}

	out := s.hydrate(ctx, results)
	s.record(ctx, trace.StageRetrieve, start,
		attribute.Int("result_count", len(out.Chunks)),
		attribute.Bool("fallback", false))
	return out
}

// hydrate maps vector store hits back to full chunk rows, keeping the
// chunks and scores arrays index-aligned. A hit whose row has vanished is
// dropped from both arrays.
func (s *Service) hydrate(ctx context.Context, results []vectorstore.Result) RetrievalResult {
	out := RetrievalResult{
		Chunks: make([]chunkstore.Chunk, 0, len(results)),
		Scores: make([]float32, 0, len(results)),
	}
	for _, r := range results {
		chunk, err := s.chunks.Get(ctx, r.Document.ID)
		if err != nil {
			s.logger.Warn("failed to hydrate chunk, dropping hit",
				"chunk_id", r.Document.ID, "error", err)
			continue
		}
		out.Chunks = append(out.Chunks, chunk)
		out.Scores = append(out.Scores, r.Score)
	}
	return out
}

// legacyFallback is the brute-force path: load the owner's rows and score
// them in memory. The owner predicate is applied in the store itself, the
// same filter key and value the primary path uses.
func (s *Service) legacyFallback(ctx context.Context, queryVec []float32, owner string, topK int, threshold float32) RetrievalResult {
	rows, err := s.chunks.ListByOwner(ctx, owner)
	if err != nil {
		s.logger.Warn("fallback scan failed, returning empty result", "error", err)
		return RetrievalResult{}
	}
	if len(rows) == 0 {
		return RetrievalResult{}
	}

	byID := make(map[string]chunkstore.Chunk, len(rows))
	candidates := make([]embedding.Candidate, len(rows))
	for i, row := range rows {
		byID[row.ID] = row
		candidates[i] = embedding.Candidate{ID: row.ID, Embedding: row.Embedding}
	}

	matches := s.embedder.FindSimilar(queryVec, candidates, topK, threshold)

	out := RetrievalResult{
		Chunks: make([]chunkstore.Chunk, 0, len(matches)),
		Scores: make([]float32, 0, len(matches)),
	}
	for _, m := range matches {
		out.Chunks = append(out.Chunks, byID[m.ID])
		out.Scores = append(out.Scores, m.Score)
	}
	return out
}
