// Package qdrant implements the remote vector index variant as a minimal
// REST client to a Qdrant server.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"persona-rag/internal/domain"
)

// DefaultTimeout bounds each request to the backend.
const DefaultTimeout = 15 * time.Second

// Config contains connection details for a Qdrant vector index.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize int
	Timeout    time.Duration
}

// Index is a vector index backed by a remote Qdrant collection using cosine
// distance. The collection is created on first use if missing.
type Index struct {
	url        string
	apiKey     string
	collection string
	vectorSize int
	client     *http.Client

	mu      sync.Mutex
	ensured bool
}

var _ domain.VectorIndex = (*Index)(nil)

// New creates a Qdrant-backed index. The URL is required; its absence is a
// configuration error, not something a retry can fix.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrConfig)
	}
	if cfg.Collection == "" {
		cfg.Collection = "knowledge_base"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Ping verifies the backend is reachable, creating the collection if it does
// not exist yet.
func (s *Index) Ping(ctx context.Context) error {
	return s.ensureCollection(ctx)
}

// ensureCollection creates the collection with the configured vector size
// and cosine distance if absent; a no-op when it already exists.
func (s *Index) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	status, err := s.call(ctx, http.MethodGet, "/collections/"+s.collection, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	switch {
	case status == http.StatusOK:
		s.ensured = true
		return nil
	case status != http.StatusNotFound:
		return fmt.Errorf("%w: get collection %s: status %d", domain.ErrStorage, s.collection, status)
	}

	if err := s.createCollection(ctx); err != nil {
		return err
	}
	s.ensured = true
	return nil
}

func (s *Index) createCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.vectorSize,
			"distance": "Cosine",
		},
	}
	status, err := s.call(ctx, http.MethodPut, "/collections/"+s.collection, body, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if status >= 300 {
		return fmt.Errorf("%w: create collection %s: status %d", domain.ErrStorage, s.collection, status)
	}
	return nil
}

// Upsert writes a batch of chunks as points in one request. The chunk
// metadata travels as the point payload.
func (s *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	for _, c := range chunks {
		if len(c.Vector) != s.vectorSize {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection is configured for %d",
				domain.ErrStorage, c.ID, len(c.Vector), s.vectorSize)
		}
	}

	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id":      c.ID,
			"vector":  c.Vector,
			"payload": c.Metadata,
		}
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	status, err := s.call(ctx, http.MethodPut, path, map[string]any{"points": points}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if status >= 300 {
		return fmt.Errorf("%w: upsert points: status %d", domain.ErrStorage, status)
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search delegates nearest-neighbor ranking to the backend and returns the
// results in the order Qdrant scored them.
func (s *Index) Search(ctx context.Context, vector []float64, topK int) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp searchResponse
	status, err := s.call(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if status >= 300 {
		return nil, fmt.Errorf("%w: search: status %d", domain.ErrStorage, status)
	}

	results := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		c := domain.Chunk{
			ID:       fmt.Sprint(r.ID),
			Metadata: r.Payload,
		}
		if text, ok := r.Payload[domain.MetaContent].(string); ok {
			c.Text = text
		}
		results = append(results, domain.ScoredChunk{Chunk: c, Score: r.Score})
	}
	return results, nil
}

// Count asks the backend for an exact point count rather than caching
// locally, since other processes may write to the same collection.
func (s *Index) Count(ctx context.Context) (int, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := s.call(ctx, http.MethodPost, "/collections/"+s.collection+"/points/count",
		map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if status >= 300 {
		return 0, fmt.Errorf("%w: count: status %d", domain.ErrStorage, status)
	}
	return resp.Result.Count, nil
}

// Clear drops the collection and recreates it empty with the same
// configuration.
func (s *Index) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.ensured = false
	s.mu.Unlock()

	status, err := s.call(ctx, http.MethodDelete, "/collections/"+s.collection, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("%w: delete collection %s: status %d", domain.ErrStorage, s.collection, status)
	}
	return s.ensureCollection(ctx)
}

// call performs one JSON request against the backend and decodes the
// response into out when provided. The HTTP status is returned so callers
// can treat 404 as a signal rather than a failure.
func (s *Index) call(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
