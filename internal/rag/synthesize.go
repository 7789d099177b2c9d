package rag

import "strings"

// chunkSeparator joins synthesized chunks in the prompt block.
const chunkSeparator = "\n\n"

// minUsefulFragmentTokens is the smallest truncated fragment worth keeping.
// A chunk that cannot fit at least this much of itself is omitted instead.
const minUsefulFragmentTokens = 10

// SynthesizeOptions tunes Synthesize.
type SynthesizeOptions struct {
	// MaxTokens is the estimated token budget for the output block.
	MaxTokens int

	// Deduplicate collapses near-identical chunk content before budgeting.
	Deduplicate bool
}

// Synthesize compresses a ranked chunk set into one token-budgeted text
// block for prompt injection.
//
// Chunks are appended in ranked order until the next one would exceed the
// budget; a chunk larger than the remaining budget is truncated to fit
// unless the surviving fragment would be uselessly small, in which case it
// is omitted. Deduplication compares normalized content, not embeddings.
func Synthesize(ranked []Candidate, opts SynthesizeOptions) SynthesizedContext {
	source := len(ranked)
	if source == 0 {
		return SynthesizedContext{CompressionRatio: 1.0}
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	chunks := ranked
	if opts.Deduplicate {
		chunks = dedupe(ranked)
	}

	sepTokens := estimateTokens(chunkSeparator)

	var b strings.Builder
	used := 0
	included := 0

	for _, c := range chunks {
		cost := estimateTokens(c.Chunk.Content)
		if included > 0 {
			cost += sepTokens
		}

		if used+cost > maxTokens {
			remaining := maxTokens - used
			if included > 0 {
				remaining -= sepTokens
			}
			if remaining < minUsefulFragmentTokens {
				break
			}
			if included > 0 {
				b.WriteString(chunkSeparator)
			}
			b.WriteString(truncateToTokens(c.Chunk.Content, remaining))
			included++
			break
		}

		if included > 0 {
			b.WriteString(chunkSeparator)
		}
		b.WriteString(c.Chunk.Content)
		used += cost
		included++
	}

	content := b.String()
	return SynthesizedContext{
		Content:               content,
		TokenCount:            estimateTokens(content),
		SourceChunkCount:      source,
		SynthesizedChunkCount: included,
		CompressionRatio:      float64(included) / float64(source),
	}
}

// dedupe keeps the first (highest-ranked) representative of near-identical
// content. A chunk whose normalized text equals, or is wholly contained in,
// an already-kept chunk is dropped; overlapping chunk windows collapse this
// way.
func dedupe(ranked []Candidate) []Candidate {
	kept := make([]Candidate, 0, len(ranked))
	seen := make([]string, 0, len(ranked))

	for _, c := range ranked {
		norm := normalizeContent(c.Chunk.Content)
		if norm == "" {
			continue
		}
		duplicate := false
		for _, prev := range seen {
			if prev == norm || strings.Contains(prev, norm) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, c)
		seen = append(seen, norm)
	}
	return kept
}

// normalizeContent lowercases and collapses whitespace for comparison.
func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// estimateTokens approximates the token count as runes/4, rounded up.
// Good enough for budgeting; exact tokenization belongs to the model side.
func estimateTokens(s string) int {
	n := len([]rune(s))
	return (n + 3) / 4
}

// truncateToTokens cuts s to roughly tokens worth of runes.
func truncateToTokens(s string, tokens int) string {
	runes := []rune(s)
	limit := tokens * 4
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
