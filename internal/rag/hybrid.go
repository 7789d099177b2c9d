package rag

import (
	"math"
	"sort"
	"strings"

	"github.com/recallhq/recall/internal/chunkstore"
)

// BM25 tuning constants, the textbook defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// HybridOptions tunes FuseHybrid. Zero values fall back to the configured
// defaults of the Service that calls it.
type HybridOptions struct {
	TopK           int
	SemanticWeight float64
	KeywordWeight  float64
	RRFK           int
}

// FuseHybrid combines the semantic ranking with a BM25 lexical ranking over
// corpus using Reciprocal Rank Fusion.
//
// Each ranking contributes weight/(k + rank) for every candidate it
// contains, with 1-based ranks; a candidate appearing in only one ranking
// keeps that single contribution. An empty semantic set degrades to pure
// lexical ranking; an empty corpus yields an empty result.
func FuseHybrid(query string, semantic []Candidate, corpus []chunkstore.Chunk, opts HybridOptions) []Candidate {
	if opts.RRFK <= 0 {
		opts.RRFK = 60
	}
	if opts.SemanticWeight <= 0 {
		opts.SemanticWeight = 1.0
	}
	if opts.KeywordWeight <= 0 {
		opts.KeywordWeight = 1.0
	}
	if len(corpus) == 0 && len(semantic) == 0 {
		return nil
	}

	lexical := bm25Rank(query, corpus)

	type fused struct {
		chunk chunkstore.Chunk
		score float64
		order int // first-seen position, for stable ties
	}
	byID := map[string]*fused{}
	var ordered []*fused

	add := func(id string, chunk chunkstore.Chunk, contribution float64) {
		f, ok := byID[id]
		if !ok {
			f = &fused{chunk: chunk, order: len(ordered)}
			byID[id] = f
			ordered = append(ordered, f)
		}
		f.score += contribution
	}

	k := float64(opts.RRFK)
	for rank, c := range semantic {
		add(c.Chunk.ID, c.Chunk, opts.SemanticWeight/(k+float64(rank+1)))
	}
	for rank, c := range lexical {
		add(c.Chunk.ID, c.Chunk, opts.KeywordWeight/(k+float64(rank+1)))
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].score > ordered[j].score
	})

	if opts.TopK > 0 && len(ordered) > opts.TopK {
		ordered = ordered[:opts.TopK]
	}

	out := make([]Candidate, len(ordered))
	for i, f := range ordered {
		out[i] = Candidate{Chunk: f.chunk, Score: float32(f.score)}
	}
	return out
}

// bm25Rank scores corpus against query with BM25 and returns the matching
// chunks sorted descending. Chunks with no query term never appear.
func bm25Rank(query string, corpus []chunkstore.Chunk) []Candidate {
	queryTerms := lexicalTerms(query)
	if len(queryTerms) == 0 || len(corpus) == 0 {
		return nil
	}

	termFreqs := make([]map[string]int, len(corpus))
	docLens := make([]int, len(corpus))
	docFreq := map[string]int{}
	totalLen := 0

	for i, c := range corpus {
		terms := lexicalTerms(c.Content)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t := range tf {
			docFreq[t]++
		}
		termFreqs[i] = tf
		docLens[i] = len(terms)
		totalLen += len(terms)
	}

	avgLen := float64(totalLen) / float64(len(corpus))
	n := float64(len(corpus))

	scores := make([]float64, len(corpus))
	for _, term := range queryTerms {
		df := docFreq[term]
		if df == 0 {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)

		for i := range corpus {
			tf := float64(termFreqs[i][term])
			if tf == 0 {
				continue
			}
			norm := tf + bm25K1*(1-bm25B+bm25B*float64(docLens[i])/avgLen)
			scores[i] += idf * tf * (bm25K1 + 1) / norm
		}
	}

	var ranked []Candidate
	for i, score := range scores {
		if score > 0 {
			ranked = append(ranked, Candidate{Chunk: corpus[i], Score: float32(score)})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// lexicalTerms lowercases and splits text into word tokens.
func lexicalTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	}
	// Keep non-ASCII letters so multibyte text tokenizes.
	return r > 127
}
