package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// QdrantStore is the managed-index backend, a minimal REST client to Qdrant.
// The collection is created at startup with cosine distance; an unreachable
// Qdrant fails initialization instead of degrading into an empty store.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
	logger     *slog.Logger
}

// QdrantConfig configures the Qdrant backend.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// NewQdrantStore creates the Qdrant backend and ensures the collection
// exists. Qdrant answers 200 for an existing collection with the same
// schema, so ensure is idempotent.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("qdrant backend requires a positive vector dimension, got %d", cfg.Dimension)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	s := &QdrantStore{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     cfg.Dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s", s.baseURL, s.collection), body, nil); err != nil {
		return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
	}

	return s, nil
}

// Name implements Store.
func (*QdrantStore) Name() string { return "qdrant" }

// Upsert implements Store.
func (s *QdrantStore) Upsert(ctx context.Context, doc Document) error {
	return s.UpsertBatch(ctx, []Document{doc})
}

// UpsertBatch implements Store. One request carries all points.
func (s *QdrantStore) UpsertBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]map[string]any, len(docs))
	for i, doc := range docs {
		payload := map[string]any{"content": doc.Content}
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      doc.ID,
			"vector":  doc.Embedding,
			"payload": payload,
		}
	}

	err := s.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", s.baseURL, s.collection),
		map[string]any{"points": points}, nil)
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	s.logger.Debug("upserted batch", "backend", s.Name(), "count", len(docs))
	return nil
}

// Search implements Store. The metadata filter becomes a Qdrant must-match
// conjunction and the threshold maps to score_threshold, so filtering stays
// server-side.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]Result, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = 20
	}

	req := map[string]any{
		"vector":          queryEmbedding,
		"limit":           topK,
		"with_payload":    true,
		"score_threshold": opts.Threshold,
	}

	if len(opts.Filter) > 0 {
		must := make([]map[string]any, 0, len(opts.Filter))
		for k, v := range opts.Filter {
			must = append(must, map[string]any{
				"key":   k,
				"match": map[string]any{"value": v},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, s.collection), req, &resp)
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]Result, 0, len(resp.Result))
	for _, hit := range resp.Result {
		doc := Document{ID: hit.ID, Metadata: map[string]string{}}
		for k, v := range hit.Payload {
			str, ok := v.(string)
			if !ok {
				continue
			}
			if k == "content" {
				doc.Content = str
				continue
			}
			doc.Metadata[k] = str
		}
		// Server-side filtering is authoritative; this re-check only guards
		// against older Qdrant versions ignoring unknown filter keys.
		if !matchesFilter(doc.Metadata, opts.Filter) {
			continue
		}
		results = append(results, Result{Document: doc, Score: hit.Score})
	}
	return results, nil
}

// Delete implements Store. Qdrant treats deleting unknown points as a no-op.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.baseURL, s.collection),
		map[string]any{"points": ids}, nil)
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

// do sends a JSON request and decodes the response into out when non-nil.
func (s *QdrantStore) do(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %s", method, url, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
