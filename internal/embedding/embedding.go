// Package embedding wraps a Genkit embedder with batching, rate limiting,
// and a brute-force cosine similarity fallback.
//
// The embedder is the only external provider call on the ingestion path, so
// provider errors propagate to callers as wrapped errors; they are fatal for
// the current document or query, never silently skipped.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
)

// Service generates embeddings through a Genkit ai.Embedder.
//
// Safe for concurrent use.
type Service struct {
	embedder ai.Embedder
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// Candidate is one entry of a caller-supplied similarity candidate set.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Match is a scored candidate returned by FindSimilar.
type Match struct {
	ID    string
	Score float32
}

// New creates an embedding Service.
//
// rps limits provider calls per second; 0 means unlimited. A nil logger
// falls back to slog.Default().
func New(embedder ai.Embedder, rps float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Service{
		embedder: embedder,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// Embed maps text to a dense vector.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in a single provider round trip.
// The output is index-aligned with the input.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	input := make([]*ai.Document, len(texts))
	for i, text := range texts {
		input[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs",
			len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned for input %d", i)
		}
		vectors[i] = e.Embedding
	}

	s.logger.Debug("embedded batch", "inputs", len(texts), "dimension", len(vectors[0]))
	return vectors, nil
}

// FindSimilar runs brute-force cosine similarity of query against the
// candidate set, returning at most topK matches with score >= threshold,
// sorted descending by score. This is the legacy fallback search path.
func (s *Service) FindSimilar(query []float32, candidates []Candidate, topK int, threshold float32) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(query, c.Embedding)
		if score >= threshold {
			matches = append(matches, Match{ID: c.ID, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// CosineSimilarity computes dot(a,b) / (||a||*||b||).
// A zero vector has similarity 0 to everything; there is never a division
// by zero. Mismatched lengths also score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
