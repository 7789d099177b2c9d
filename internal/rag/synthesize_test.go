package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenChunk builds a candidate whose content estimates to exactly n tokens.
func tokenChunk(id string, n int) Candidate {
	return Candidate{Chunk: namedChunk(id, strings.Repeat("abcd", n))}
}

func TestSynthesize_BudgetWithTruncatedTail(t *testing.T) {
	t.Parallel()

	// Five 200-token chunks into a 450-token budget: two fit whole, the
	// third is truncated to the remainder, the rest are dropped.
	ranked := []Candidate{
		tokenChunk("c1", 200),
		tokenChunk("c2", 200),
		tokenChunk("c3", 200),
		tokenChunk("c4", 200),
		tokenChunk("c5", 200),
	}

	out := Synthesize(ranked, SynthesizeOptions{MaxTokens: 450})

	assert.Equal(t, 5, out.SourceChunkCount)
	assert.Equal(t, 3, out.SynthesizedChunkCount)
	assert.InDelta(t, 0.6, out.CompressionRatio, 1e-9)
	assert.LessOrEqual(t, out.TokenCount, 450)
	assert.Positive(t, out.TokenCount)
}

func TestSynthesize_NeverExceedsBudget(t *testing.T) {
	t.Parallel()

	ranked := []Candidate{
		tokenChunk("a", 37),
		tokenChunk("b", 121),
		tokenChunk("c", 5),
		tokenChunk("d", 299),
		tokenChunk("e", 64),
	}

	for _, budget := range []int{15, 50, 120, 300, 1000} {
		out := Synthesize(ranked, SynthesizeOptions{MaxTokens: budget})
		assert.LessOrEqual(t, out.TokenCount, budget, "budget %d", budget)
	}
}

func TestSynthesize_TinyFragmentOmitted(t *testing.T) {
	t.Parallel()

	// After the first chunk only 5 tokens remain, below the minimum useful
	// fragment, so the second chunk is omitted rather than truncated.
	ranked := []Candidate{
		tokenChunk("a", 100),
		tokenChunk("b", 100),
	}

	out := Synthesize(ranked, SynthesizeOptions{MaxTokens: 105})
	assert.Equal(t, 1, out.SynthesizedChunkCount)
	assert.Equal(t, 2, out.SourceChunkCount)
	assert.InDelta(t, 0.5, out.CompressionRatio, 1e-9)
}

func TestSynthesize_AppendsInRankedOrder(t *testing.T) {
	t.Parallel()

	ranked := []Candidate{
		{Chunk: namedChunk("top", "first ranked content block")},
		{Chunk: namedChunk("mid", "second ranked content block")},
	}

	out := Synthesize(ranked, SynthesizeOptions{MaxTokens: 1000})
	first := strings.Index(out.Content, "first ranked")
	second := strings.Index(out.Content, "second ranked")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.Equal(t, 2, out.SynthesizedChunkCount)
	assert.InDelta(t, 1.0, out.CompressionRatio, 1e-9)
}

func TestSynthesize_DeduplicatesNormalizedContent(t *testing.T) {
	t.Parallel()

	ranked := []Candidate{
		{Chunk: namedChunk("a", "The refund policy lasts thirty days.")},
		{Chunk: namedChunk("b", "the  refund   POLICY lasts thirty days.")},
		{Chunk: namedChunk("c", "refund policy lasts thirty")},
		{Chunk: namedChunk("d", "Shipping is free over fifty dollars.")},
	}

	out := Synthesize(ranked, SynthesizeOptions{MaxTokens: 1000, Deduplicate: true})

	// b normalizes identically to a, c is contained in a; only a and d stay.
	assert.Equal(t, 2, out.SynthesizedChunkCount)
	assert.Equal(t, 4, out.SourceChunkCount)
	assert.InDelta(t, 0.5, out.CompressionRatio, 1e-9)
	assert.Equal(t, 1, strings.Count(strings.ToLower(out.Content), "refund policy lasts thirty days"))
}

func TestSynthesize_DedupDisabledKeepsDuplicates(t *testing.T) {
	t.Parallel()

	ranked := []Candidate{
		{Chunk: namedChunk("a", "same text")},
		{Chunk: namedChunk("b", "same text")},
	}

	out := Synthesize(ranked, SynthesizeOptions{MaxTokens: 1000})
	assert.Equal(t, 2, out.SynthesizedChunkCount)
}

func TestSynthesize_Empty(t *testing.T) {
	t.Parallel()

	out := Synthesize(nil, SynthesizeOptions{MaxTokens: 100})
	assert.Empty(t, out.Content)
	assert.Zero(t, out.TokenCount)
	assert.Zero(t, out.SourceChunkCount)
	assert.Zero(t, out.SynthesizedChunkCount)
	assert.InDelta(t, 1.0, out.CompressionRatio, 1e-9)
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	assert.Zero(t, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("ab"))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
	// Runes, not bytes.
	assert.Equal(t, 1, estimateTokens("日本語だ"))
}

func TestTruncateToTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcdabcd", truncateToTokens("abcdabcdabcd", 2))
	assert.Equal(t, "short", truncateToTokens("short", 100))
}
