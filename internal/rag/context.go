package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/recallhq/recall/internal/chunkstore"
	"github.com/recallhq/recall/internal/trace"
)

// RetrieveAdvanced runs the full pipeline: retrieve, then optionally fuse
// with a lexical ranking, re-rank, and synthesize a context block.
//
// Stages degrade independently: a stage that cannot run (for example the
// hybrid corpus scan failing) logs and passes the previous stage's output
// through. Like Retrieve, this never surfaces a hard failure.
func (s *Service) RetrieveAdvanced(ctx context.Context, query string, opts AdvancedOptions) AdvancedResult {
	base := s.Retrieve(ctx, query, RetrieveOptions{
		OwnerID:   opts.OwnerID,
		TopK:      opts.TopK,
		Threshold: opts.Threshold,
	})

	candidates := make([]Candidate, len(base.Chunks))
	for i, chunk := range base.Chunks {
		candidates[i] = Candidate{Chunk: chunk, Score: base.Scores[i]}
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	if opts.UseHybrid {
		start := time.Now()
		owner := normalizeOwner(opts.OwnerID)
		corpus, err := s.chunks.ListByOwner(ctx, owner)
		if err != nil {
			s.logger.Warn("hybrid corpus scan failed, keeping semantic ranking", "error", err)
		} else {
			candidates = FuseHybrid(query, candidates, corpus, HybridOptions{
				TopK:           topK,
				SemanticWeight: s.cfg.SemanticWeight,
				KeywordWeight:  s.cfg.KeywordWeight,
				RRFK:           s.cfg.RRFK,
			})
		}
		s.record(ctx, trace.StageFuse, start, attribute.Int("candidate_count", len(candidates)))
	}

	if opts.UseRerank {
		start := time.Now()
		candidates = Rerank(query, candidates, RerankOptions{
			TopK:  topK,
			Blend: s.cfg.RerankBlend,
		})
		s.record(ctx, trace.StageRerank, start, attribute.Int("candidate_count", len(candidates)))
	}

	result := AdvancedResult{
		Chunks: make([]chunkstore.Chunk, len(candidates)),
		Scores: make([]float32, len(candidates)),
	}
	for i, c := range candidates {
		result.Chunks[i] = c.Chunk
		result.Scores[i] = c.Score
	}

	if opts.UseSynthesis {
		start := time.Now()
		maxTokens := opts.MaxContextTokens
		if maxTokens <= 0 {
			maxTokens = s.cfg.MaxContextTokens
		}
		synthesized := Synthesize(candidates, SynthesizeOptions{
			MaxTokens:   maxTokens,
			Deduplicate: opts.Deduplicate,
		})
		result.Synthesized = &synthesized
		s.record(ctx, trace.StageSynthesize, start,
			attribute.Int("source_chunks", synthesized.SourceChunkCount),
			attribute.Int("synthesized_chunks", synthesized.SynthesizedChunkCount))
	}

	return result
}

// BuildContext retrieves owner-scoped chunks for a query and shapes them
// for the prompt composer.
func (s *Service) BuildContext(ctx context.Context, query, ownerID string) RAGContext {
	result := s.Retrieve(ctx, query, RetrieveOptions{OwnerID: ownerID})
	return toRAGContext(result.Chunks)
}

// BuildContextAdvanced is BuildContext through the full pipeline, with a
// pre-synthesized context block and its token count attached.
func (s *Service) BuildContextAdvanced(ctx context.Context, query string, opts AdvancedOptions) RAGContext {
	opts.UseSynthesis = true
	result := s.RetrieveAdvanced(ctx, query, opts)

	rc := toRAGContext(result.Chunks)
	if result.Synthesized != nil {
		rc.Context = result.Synthesized.Content
		rc.TokenCount = result.Synthesized.TokenCount
	}
	return rc
}

// FormatContextForPrompt renders a RAGContext as the text block the prompt
// composer injects ahead of the user query. Empty context renders empty.
func FormatContextForPrompt(rc RAGContext) string {
	body := rc.Context
	if body == "" {
		if len(rc.RelevantChunks) == 0 {
			return ""
		}
		body = strings.Join(rc.RelevantChunks, chunkSeparator)
	}

	var b strings.Builder
	b.WriteString("Relevant information from your knowledge base:\n\n")
	b.WriteString(body)

	if len(rc.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, src := range rc.Sources {
			name := src.Filename
			if name == "" {
				name = src.DocumentID
			}
			fmt.Fprintf(&b, "- %s (chunk %d)\n", name, src.ChunkIndex)
		}
	}
	return b.String()
}

func toRAGContext(chunks []chunkstore.Chunk) RAGContext {
	rc := RAGContext{
		RelevantChunks: make([]string, len(chunks)),
		Sources:        make([]Source, len(chunks)),
	}
	for i, c := range chunks {
		rc.RelevantChunks[i] = c.Content
		rc.Sources[i] = Source{
			DocumentID: c.DocumentID,
			Filename:   c.Metadata[MetaFilename],
			ChunkIndex: c.ChunkIndex,
		}
	}
	return rc
}
