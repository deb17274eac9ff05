// Package memory implements the in-process vector index variant: a
// linear-scan store over parallel chunk and vector slices.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"persona-rag/internal/domain"
)

// Index stores chunks in memory and scans every vector on search. This is
// O(n) per query and acceptable only for small corpora, hundreds to
// low-thousands of chunks.
type Index struct {
	mu         sync.RWMutex
	vectorSize int
	vectors    [][]float64
	chunks     []domain.Chunk
}

var _ domain.VectorIndex = (*Index)(nil)

// New creates an empty in-memory index for vectors of the given size.
func New(vectorSize int) *Index {
	return &Index{vectorSize: vectorSize}
}

// Upsert appends a batch of chunks. A vector whose size differs from the
// collection's configured size fails the whole batch before anything is
// written.
func (s *Index) Upsert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if len(c.Vector) != s.vectorSize {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection is configured for %d",
				domain.ErrStorage, c.ID, len(c.Vector), s.vectorSize)
		}
	}
	for _, c := range chunks {
		s.chunks = append(s.chunks, c)
		s.vectors = append(s.vectors, c.Vector)
	}
	return nil
}

// Search scores every stored vector against the query by cosine similarity
// and returns the top results in descending order. Chunks with equal scores
// keep their insertion order.
func (s *Index) Search(_ context.Context, vector []float64, topK int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredChunk, len(s.chunks))
	for i := range s.vectors {
		scored[i] = domain.ScoredChunk{Chunk: s.chunks[i], Score: cosine(vector, s.vectors[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// Count reports the number of stored chunks.
func (s *Index) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Clear drops all chunks; the configured vector size is kept.
func (s *Index) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

// cosine computes the cosine similarity of two vectors. Inputs are not
// assumed to be normalized.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
