package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/chunker"
	"github.com/recallhq/recall/internal/rag"
)

var ingestFlags struct {
	owner     string
	mimeType  string
	strategy  string
	chunkSize int
	overlap   int
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestFlags.owner, "owner", "", "owner identity (default: guest)")
	f.StringVar(&ingestFlags.mimeType, "mime", "", "mime type (default: inferred from extension)")
	f.StringVar(&ingestFlags.strategy, "strategy", "", "chunking strategy: paragraph, sentence, semantic, hierarchical")
	f.IntVar(&ingestFlags.chunkSize, "chunk-size", 0, "max chunk size in characters")
	f.IntVar(&ingestFlags.overlap, "overlap", 0, "overlap between chunks in characters")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", path, err)
	}

	mimeType := ingestFlags.mimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "text/plain"
		}
	}

	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result := svc.IngestDocument(ctx, rag.DocumentInput{
		Content:  content,
		Filename: filepath.Base(path),
		MimeType: mimeType,
		Chunking: chunker.Options{
			Strategy:     chunker.Strategy(ingestFlags.strategy),
			MaxChunkSize: ingestFlags.chunkSize,
			Overlap:      ingestFlags.overlap,
		},
	}, ingestFlags.owner)

	if !result.Success {
		return fmt.Errorf("ingestion failed: %s", result.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s: document %s, %d chunks\n",
		path, result.DocumentID, result.ChunksCreated)
	return nil
}
