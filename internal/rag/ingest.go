package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/recallhq/recall/internal/chunker"
	"github.com/recallhq/recall/internal/chunkstore"
	"github.com/recallhq/recall/internal/extract"
	"github.com/recallhq/recall/internal/trace"
	"github.com/recallhq/recall/internal/vectorstore"
)

// greetings is the allow-list of trivial conversation openers that are
// never worth indexing, matched against the lowercased trimmed message.
var greetings = map[string]struct{}{
	"ok": {}, "okay": {}, "k": {}, "kk": {},
	"yes": {}, "no": {}, "yep": {}, "nope": {}, "yeah": {}, "nah": {},
	"hi": {}, "hello": {}, "hey": {}, "yo": {},
	"thanks": {}, "thank you": {}, "thx": {}, "ty": {},
	"bye": {}, "goodbye": {}, "good morning": {}, "good night": {},
	"sure": {}, "cool": {}, "nice": {}, "great": {}, "got it": {}, "lol": {},
}

// IngestDocument extracts, chunks, embeds, and persists one document under
// ownerID, then mirrors the chunks into the vector index.
//
// Failures before persistence return Success false with no rows written.
// An indexing failure after rows are persisted is logged and tolerated;
// the rows remain findable by scan until re-indexed.
func (s *Service) IngestDocument(ctx context.Context, in DocumentInput, ownerID string) IngestResult {
	owner := normalizeOwner(ownerID)

	start := time.Now()
	text, err := extract.Text(in.Content, in.MimeType)
	s.record(ctx, trace.StageExtract, start, attribute.String("mime_type", in.MimeType))
	if err != nil {
		return failure(fmt.Sprintf("failed to extract text from %q: %v", in.Filename, err))
	}

	opts := in.Chunking
	if opts.MaxChunkSize == 0 {
		opts.MaxChunkSize = s.cfg.ChunkSize
	}
	if opts.Overlap == 0 {
		opts.Overlap = s.cfg.ChunkOverlap
	}

	start = time.Now()
	pieces := chunker.Split(text, opts)
	s.record(ctx, trace.StageChunk, start, attribute.Int("chunk_count", len(pieces)))
	if len(pieces) == 0 {
		return failure(fmt.Sprintf("document %q produced no usable chunks", in.Filename))
	}

	metadata := map[string]string{
		MetaSourceType: SourceDocument,
		MetaFilename:   in.Filename,
		MetaMimeType:   in.MimeType,
	}

	return s.ingestPieces(ctx, pieces, owner, in.AttachmentID, metadata)
}

// IngestMessage chunks and persists one conversation message under ownerID.
// Trivial messages (below the minimum length or on the greeting allow-list)
// are skipped and return nil, not a failure.
func (s *Service) IngestMessage(ctx context.Context, in MessageInput, ownerID string) *IngestResult {
	if s.isTrivialMessage(in.Content) {
		s.logger.Debug("skipping trivial message", "message_id", in.MessageID)
		return nil
	}

	owner := normalizeOwner(ownerID)

	start := time.Now()
	pieces := chunker.Split(in.Content, chunker.Options{Strategy: chunker.StrategySentence})
	s.record(ctx, trace.StageChunk, start, attribute.Int("chunk_count", len(pieces)))
	if len(pieces) == 0 {
		res := failure(fmt.Sprintf("message %q produced no usable chunks", in.MessageID))
		return &res
	}

	metadata := map[string]string{
		MetaSourceType: SourceMessage,
		MetaChatID:     in.ChatID,
		MetaMessageID:  in.MessageID,
		MetaRole:       in.Role,
	}
	if !in.Timestamp.IsZero() {
		metadata[MetaTimestamp] = in.Timestamp.UTC().Format(time.RFC3339)
	}

	res := s.ingestPieces(ctx, pieces, owner, "", metadata)
	return &res
}

// isTrivialMessage reports whether a message is noise that can never be
// usefully retrieved.
func (s *Service) isTrivialMessage(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len([]rune(trimmed)) < s.cfg.MinMessageLength {
		return true
	}
	normalized := strings.ToLower(strings.TrimRight(trimmed, ".!?, "))
	_, ok := greetings[normalized]
	return ok
}

// ingestPieces is the shared tail of both ingestion paths: batch-embed,
// persist rows, mirror into the vector index.
//
// This is the only place owner identity enters the store. Every chunk is
// stamped here, unconditionally.
func (s *Service) ingestPieces(ctx context.Context, pieces []chunker.Piece, owner, attachmentID string, base map[string]string) IngestResult {
	documentID := uuid.NewString()

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}

	start := time.Now()
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	s.record(ctx, trace.StageEmbed, start, attribute.Int("chunk_count", len(texts)))
	if err != nil {
		return failure(fmt.Sprintf("failed to embed chunks: %v", err))
	}

	verified := strconv.FormatBool(owner != GuestOwner)

	chunks := make([]chunkstore.Chunk, len(pieces))
	docs := make([]vectorstore.Document, len(pieces))
	for i, p := range pieces {
		metadata := map[string]string{
			MetaOwnerID:  owner,
			MetaVerified: verified,
		}
		for k, v := range base {
			if v != "" {
				metadata[k] = v
			}
		}
		if p.Section != "" {
			metadata[MetaSection] = p.Section
		}

		id := uuid.NewString()
		chunks[i] = chunkstore.Chunk{
			ID:           id,
			DocumentID:   documentID,
			AttachmentID: attachmentID,
			ChunkIndex:   p.Index,
			Content:      p.Text,
			Embedding:    vectors[i],
			Metadata:     metadata,
		}
		docs[i] = vectorstore.Document{
			ID:        id,
			Content:   p.Text,
			Embedding: vectors[i],
			Metadata:  metadata,
		}
	}

	start = time.Now()
	if err := s.chunks.Insert(ctx, chunks); err != nil {
		s.record(ctx, trace.StagePersist, start)
		return failure(fmt.Sprintf("failed to persist chunks: %v", err))
	}

	// Index after persist, in that order: a crash in between leaves rows
	// findable by scan but not yet searchable, never the reverse.
	if err := s.vectors.UpsertBatch(ctx, docs); err != nil {
		s.logger.Warn("failed to index chunks, rows persisted without vectors",
			"document_id", documentID, "error", err)
	}
	s.record(ctx, trace.StagePersist, start, attribute.Int("chunk_count", len(chunks)))

	s.logger.Debug("ingested",
		"document_id", documentID,
		"owner_id", owner,
		"chunks", len(chunks))

	return IngestResult{
		DocumentID:    documentID,
		ChunksCreated: len(chunks),
		Success:       true,
	}
}

// DeleteDocument removes every chunk of a document from the row store and
// the vector index. Deleting an unknown document is a no-op.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	ids, err := s.chunks.DeleteByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document %q: %w", documentID, err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.vectors.Delete(ctx, ids); err != nil {
		return fmt.Errorf("failed to unindex document %q: %w", documentID, err)
	}
	s.logger.Debug("deleted document", "document_id", documentID, "chunks", len(ids))
	return nil
}

// Stats summarizes the stored corpus for one owner.
func (s *Service) Stats(ctx context.Context, ownerID string) (Stats, error) {
	owner := normalizeOwner(ownerID)

	chunks, err := s.chunks.ListByOwner(ctx, owner)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load chunks for stats: %w", err)
	}

	stats := Stats{TotalChunks: len(chunks)}
	docs := map[string]struct{}{}
	for _, c := range chunks {
		switch c.Metadata[MetaSourceType] {
		case SourceMessage:
			stats.MessageChunks++
		default:
			stats.DocumentChunks++
		}
		docs[c.DocumentID] = struct{}{}
	}
	stats.Documents = len(docs)
	return stats, nil
}

func failure(msg string) IngestResult {
	return IngestResult{Success: false, Error: msg}
}
