package rag

import "sort"

// RerankOptions tunes Rerank.
type RerankOptions struct {
	// TopK truncates the output; it can never exceed the input count.
	TopK int

	// Blend weights the incoming fused score against the lexical-overlap
	// signal: final = Blend*fused + (1-Blend)*overlap. Zero uses 0.7.
	Blend float64
}

// Rerank re-scores an already-ranked candidate set by blending each
// candidate's incoming score with its lexical overlap against the query.
//
// Incoming scores are normalized to [0, 1] against the set maximum before
// blending so the two signals are on comparable scales. The sort is stable:
// exact score ties keep the input order. Re-ranking never invents
// candidates.
func Rerank(query string, candidates []Candidate, opts RerankOptions) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	blend := opts.Blend
	if blend <= 0 || blend > 1 {
		blend = 0.7
	}

	var maxScore float32
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}

	queryTerms := termSet(lexicalTerms(query))

	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		normalized := float64(0)
		if maxScore > 0 {
			normalized = float64(c.Score / maxScore)
		}
		overlap := queryOverlap(queryTerms, c.Chunk.Content)
		out[i] = Candidate{
			Chunk: c.Chunk,
			Score: float32(blend*normalized + (1-blend)*overlap),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out
}

// queryOverlap is the fraction of distinct query terms present in content.
func queryOverlap(queryTerms map[string]struct{}, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	contentTerms := termSet(lexicalTerms(content))
	hits := 0
	for t := range queryTerms {
		if _, ok := contentTerms[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

func termSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}
