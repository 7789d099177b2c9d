package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank_BoostsLexicalOverlap(t *testing.T) {
	t.Parallel()

	// Both candidates arrive with the same fused score; the one containing
	// the query terms must win on the overlap signal.
	candidates := []Candidate{
		{Chunk: namedChunk("plain", "completely different subject matter"), Score: 0.5},
		{Chunk: namedChunk("match", "refund policy for all purchases"), Score: 0.5},
	}

	out := Rerank("refund policy", candidates, RerankOptions{Blend: 0.7})
	require.Len(t, out, 2)
	assert.Equal(t, "match", out[0].Chunk.ID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestRerank_StableOnTies(t *testing.T) {
	t.Parallel()

	// Identical scores and identical overlap: input order must survive.
	candidates := []Candidate{
		{Chunk: namedChunk("first", "refund details"), Score: 0.5},
		{Chunk: namedChunk("second", "refund details"), Score: 0.5},
		{Chunk: namedChunk("third", "refund details"), Score: 0.5},
	}

	out := Rerank("refund", candidates, RerankOptions{})
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Chunk.ID)
	assert.Equal(t, "second", out[1].Chunk.ID)
	assert.Equal(t, "third", out[2].Chunk.ID)
}

func TestRerank_NeverInventsCandidates(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{Chunk: namedChunk("a", "refund policy"), Score: 0.9},
		{Chunk: namedChunk("b", "refund"), Score: 0.8},
		{Chunk: namedChunk("c", "unrelated"), Score: 0.7},
	}

	out := Rerank("refund policy", candidates, RerankOptions{TopK: 2})
	assert.Len(t, out, 2)

	out = Rerank("refund policy", candidates, RerankOptions{TopK: 50})
	assert.Len(t, out, 3)

	assert.Empty(t, Rerank("refund", nil, RerankOptions{}))
}

func TestRerank_BlendWeighting(t *testing.T) {
	t.Parallel()

	// A very high blend keeps the incoming ranking even against a strong
	// overlap signal on the lower-scored candidate.
	candidates := []Candidate{
		{Chunk: namedChunk("semantic", "unrelated wording entirely"), Score: 1.0},
		{Chunk: namedChunk("lexical", "refund policy verbatim match"), Score: 0.2},
	}

	out := Rerank("refund policy", candidates, RerankOptions{Blend: 0.99})
	assert.Equal(t, "semantic", out[0].Chunk.ID)

	out = Rerank("refund policy", candidates, RerankOptions{Blend: 0.1})
	assert.Equal(t, "lexical", out[0].Chunk.ID)
}

func TestQueryOverlap(t *testing.T) {
	t.Parallel()

	terms := termSet(lexicalTerms("refund policy days"))
	assert.InDelta(t, 1.0, queryOverlap(terms, "refund policy lasts 30 days"), 1e-9)
	assert.InDelta(t, 1.0/3, queryOverlap(terms, "the refund desk"), 1e-9)
	assert.Zero(t, queryOverlap(terms, "nothing in common"))
	assert.Zero(t, queryOverlap(map[string]struct{}{}, "anything"))
}
