package domain

import "context"

// Metadata keys attached to every indexed chunk. Caller-supplied metadata is
// merged with these; on collision the reserved keys win.
const (
	MetaSource    = "source"
	MetaChunkID   = "chunk_id"
	MetaContent   = "content"
	MetaCreatedAt = "created_at"
)

// Chunk is the atomic retrievable unit: a bounded span of source text stored
// together with its embedding and metadata. Chunks are immutable once
// written; an update is a delete plus reinsert, never in-place mutation.
type Chunk struct {
	ID       string
	Text     string
	Vector   []float64
	Metadata map[string]any
}

// ScoredChunk pairs a retrieved chunk with its cosine similarity to the
// query vector, in [-1, 1].
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Message is one role-tagged turn of a generation request.
type Message struct {
	Role    string
	Content string
}

// Message roles understood by the generation collaborator.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Embedder converts text into a fixed-length dense vector via an external
// embedding model. Implementations do not retry; failures propagate to the
// caller wrapped in ErrEmbedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// VectorIndex stores chunks and supports similarity search. It is the single
// owner of chunk storage; the collection is created on first use if absent.
type VectorIndex interface {
	// Upsert writes a batch of chunks. Every vector must match the
	// collection's configured size.
	Upsert(ctx context.Context, chunks []Chunk) error
	// Search returns up to topK chunks ordered by descending similarity to
	// the query vector. topK <= 0 or an empty collection yields an empty
	// result, not an error.
	Search(ctx context.Context, vector []float64, topK int) ([]ScoredChunk, error)
	// Count reports the number of chunks currently stored.
	Count(ctx context.Context) (int, error)
	// Clear drops all chunks and recreates an empty collection with the
	// same configuration.
	Clear(ctx context.Context) error
}

// Generator produces text from an ordered sequence of role-tagged turns.
type Generator interface {
	Generate(ctx context.Context, messages []Message, temperature float64) (string, error)
}
