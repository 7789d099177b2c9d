// Package testutil provides shared testing utilities for the recall project.
//
// This package contains reusable test infrastructure used across multiple
// packages, following the pattern of standard library packages like
// net/http/httptest and testing/iotest.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// MockEmbedder is a deterministic ai.Embedder for unit tests.
//
// It hashes tokens into a fixed-dimension bag-of-words vector and
// L2-normalizes the result, so texts sharing vocabulary produce similar
// embeddings. That gives tests real, repeatable similarity ordering without
// a network provider.
type MockEmbedder struct {
	// Dimension of produced vectors. Zero means DefaultMockDimension.
	Dimension int

	// Err, when set, is returned by every Embed call.
	Err error

	mu        sync.Mutex
	callCount int
}

// DefaultMockDimension is the vector size MockEmbedder produces by default.
const DefaultMockDimension = 64

// Name implements ai.Embedder.
func (m *MockEmbedder) Name() string { return "mock-embedder" }

// Register implements ai.Embedder. No-op for testing.
func (m *MockEmbedder) Register(api.Registry) {}

// Embed implements ai.Embedder with deterministic hashed embeddings.
// Output order matches input order.
func (m *MockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		embeddings[i] = &ai.Embedding{Embedding: m.vectorFor(text)}
	}

	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// CallCount reports how many Embed calls were made. One batch is one call.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *MockEmbedder) vectorFor(text string) []float32 {
	dim := m.Dimension
	if dim <= 0 {
		dim = DefaultMockDimension
	}

	v := make([]float32, dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		v[h.Sum32()%uint32(dim)]++ //nolint:gosec // dim is a small positive test constant
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		// Whitespace-only input still embeds to a constant unit vector.
		v[0] = 1
		return v
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
