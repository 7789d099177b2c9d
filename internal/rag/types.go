package rag

import (
	"time"

	"github.com/recallhq/recall/internal/chunker"
	"github.com/recallhq/recall/internal/chunkstore"
)

// GuestOwner is the owner identity stamped on chunks ingested without an
// authenticated user. Retrieval requests without an owner are scoped to it.
const GuestOwner = "guest"

// Metadata keys stamped onto every chunk at ingestion time.
const (
	MetaOwnerID    = chunkstore.MetadataOwnerID
	MetaVerified   = "verified"
	MetaSourceType = "source_type"
	MetaFilename   = "filename"
	MetaMimeType   = "mime_type"
	MetaSection    = "section"
	MetaChatID     = "chat_id"
	MetaMessageID  = "message_id"
	MetaRole       = "role"
	MetaTimestamp  = "timestamp"
)

// Source type values for MetaSourceType.
const (
	SourceDocument = "document"
	SourceMessage  = "message"
)

// DocumentInput describes one document to ingest.
type DocumentInput struct {
	Content      []byte
	AttachmentID string
	Filename     string
	MimeType     string

	// Chunking overrides the configured chunking defaults when non-zero.
	Chunking chunker.Options
}

// MessageInput describes one conversation message to ingest.
type MessageInput struct {
	Content   string
	ChatID    string
	MessageID string
	Role      string
	Timestamp time.Time
}

// IngestResult reports the outcome of one ingestion call.
// Failures carry Error as text rather than an error value so callers can
// log or display the result without unwrapping.
type IngestResult struct {
	DocumentID    string
	ChunksCreated int
	Success       bool
	Error         string
}

// RetrieveOptions tunes one retrieval call. Zero values fall back to the
// configured defaults; an empty OwnerID is scoped to GuestOwner.
type RetrieveOptions struct {
	OwnerID   string
	TopK      int
	Threshold float32
}

// RetrievalResult is the output of Retrieve: parallel arrays sorted
// descending by score. Chunks[i] scored Scores[i].
type RetrievalResult struct {
	Chunks []chunkstore.Chunk
	Scores []float32
}

// Candidate is an ephemeral scored chunk flowing between retrieval stages.
type Candidate struct {
	Chunk chunkstore.Chunk
	Score float32
}

// AdvancedOptions tunes RetrieveAdvanced. Each stage is individually
// skippable; a disabled stage passes the previous stage's output through.
type AdvancedOptions struct {
	OwnerID   string
	TopK      int
	Threshold float32

	UseHybrid    bool
	UseRerank    bool
	UseSynthesis bool

	// MaxContextTokens bounds the synthesis stage; zero uses the
	// configured default.
	MaxContextTokens int
	Deduplicate      bool
}

// AdvancedResult is the output of RetrieveAdvanced. Synthesized is nil
// unless the synthesis stage ran.
type AdvancedResult struct {
	Chunks      []chunkstore.Chunk
	Scores      []float32
	Synthesized *SynthesizedContext
}

// SynthesizedContext is the token-budgeted prompt block produced by
// Synthesize, with its compression statistics.
type SynthesizedContext struct {
	Content               string
	TokenCount            int
	SourceChunkCount      int
	SynthesizedChunkCount int
	CompressionRatio      float64
}

// Source identifies where a context chunk came from.
type Source struct {
	DocumentID string
	Filename   string
	ChunkIndex int
}

// RAGContext is the payload handed to the prompt composer. Context and
// TokenCount are populated only by the advanced path.
type RAGContext struct {
	RelevantChunks []string
	Sources        []Source
	Context        string
	TokenCount     int
}

// Stats summarizes one owner's stored corpus.
type Stats struct {
	TotalChunks    int
	DocumentChunks int
	MessageChunks  int
	Documents      int
}

// normalizeOwner maps an absent owner to the guest sentinel.
func normalizeOwner(ownerID string) string {
	if ownerID == "" {
		return GuestOwner
	}
	return ownerID
}
