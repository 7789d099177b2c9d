package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/chunkstore"
	"github.com/recallhq/recall/internal/rag"
)

var queryFlags struct {
	owner      string
	topK       int
	threshold  float32
	hybrid     bool
	rerank     bool
	synthesize bool
	maxTokens  int
	showScores bool
}

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve owner-scoped context for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.owner, "owner", "", "owner identity (default: guest)")
	f.IntVar(&queryFlags.topK, "top-k", 0, "maximum results")
	f.Float32Var(&queryFlags.threshold, "threshold", 0, "minimum similarity score")
	f.BoolVar(&queryFlags.hybrid, "hybrid", false, "fuse with lexical BM25 ranking")
	f.BoolVar(&queryFlags.rerank, "rerank", false, "re-rank the candidate set")
	f.BoolVar(&queryFlags.synthesize, "synthesize", false, "emit a token-budgeted context block")
	f.IntVar(&queryFlags.maxTokens, "max-tokens", 0, "token budget for --synthesize")
	f.BoolVar(&queryFlags.showScores, "scores", false, "print scores with each chunk")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()

	if queryFlags.hybrid || queryFlags.rerank || queryFlags.synthesize {
		result := svc.RetrieveAdvanced(ctx, query, rag.AdvancedOptions{
			OwnerID:          queryFlags.owner,
			TopK:             queryFlags.topK,
			Threshold:        queryFlags.threshold,
			UseHybrid:        queryFlags.hybrid,
			UseRerank:        queryFlags.rerank,
			UseSynthesis:     queryFlags.synthesize,
			MaxContextTokens: queryFlags.maxTokens,
			Deduplicate:      true,
		})

		if result.Synthesized != nil {
			fmt.Fprintln(out, result.Synthesized.Content)
			fmt.Fprintf(out, "\n(%d tokens, %d of %d chunks)\n",
				result.Synthesized.TokenCount,
				result.Synthesized.SynthesizedChunkCount,
				result.Synthesized.SourceChunkCount)
			return nil
		}
		printChunks(out, result.Chunks, result.Scores)
		return nil
	}

	result := svc.Retrieve(ctx, query, rag.RetrieveOptions{
		OwnerID:   queryFlags.owner,
		TopK:      queryFlags.topK,
		Threshold: queryFlags.threshold,
	})
	printChunks(out, result.Chunks, result.Scores)
	return nil
}

func printChunks(out io.Writer, chunks []chunkstore.Chunk, scores []float32) {
	if len(chunks) == 0 {
		fmt.Fprintln(out, "No matching chunks.")
		return
	}
	for i, c := range chunks {
		if queryFlags.showScores {
			fmt.Fprintf(out, "[%d] %.3f %s\n", i+1, scores[i], c.Content)
		} else {
			fmt.Fprintf(out, "[%d] %s\n", i+1, c.Content)
		}
	}
}
