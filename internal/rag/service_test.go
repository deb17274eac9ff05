package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-rag/internal/chunker"
	"persona-rag/internal/domain"
	"persona-rag/internal/vectorstore/memory"
)

// stubEmbedder returns a fixed vector per known text and can be told to fail
// on a specific input.
type stubEmbedder struct {
	vectors map[string][]float64
	failOn  string
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, domain.ErrEmbedding
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func (e *stubEmbedder) Dimension() int { return 3 }

// stubGenerator records the request it was given and returns a canned
// answer.
type stubGenerator struct {
	messages    []domain.Message
	temperature float64
	answer      string
	err         error
}

func (g *stubGenerator) Generate(_ context.Context, messages []domain.Message, temperature float64) (string, error) {
	g.messages = messages
	g.temperature = temperature
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func newService(embedder domain.Embedder, generator domain.Generator) (*Service, *memory.Index) {
	idx := memory.New(3)
	return New(chunker.New(30, 8), embedder, idx, generator, 0.3), idx
}

func TestIngestText(t *testing.T) {
	ctx := context.Background()
	svc, idx := newService(&stubEmbedder{}, &stubGenerator{answer: "ok"})

	n, err := svc.IngestText(ctx, "Alice builds compilers. Bob writes tests.", map[string]any{
		domain.MetaSource: "summary.txt",
		"owner":           "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	results, err := idx.Search(ctx, []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for i, r := range results {
		md := r.Chunk.Metadata
		assert.Equal(t, "summary.txt", md[domain.MetaSource])
		assert.Equal(t, "alice", md["owner"], "caller metadata preserved verbatim")
		assert.Equal(t, r.Chunk.Text, md[domain.MetaContent])
		assert.NotEmpty(t, md[domain.MetaCreatedAt])
		assert.NotEmpty(t, r.Chunk.ID)
		if i > 0 {
			assert.NotEqual(t, results[0].Chunk.ID, r.Chunk.ID)
		}
	}
}

func TestIngestText_DefaultSource(t *testing.T) {
	ctx := context.Background()
	svc, idx := newService(&stubEmbedder{}, &stubGenerator{})

	_, err := svc.IngestText(ctx, "One short sentence.", nil)
	require.NoError(t, err)

	results, err := idx.Search(ctx, []float64{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, SourceDirectText, results[0].Chunk.Metadata[domain.MetaSource])
	assert.Equal(t, 0, results[0].Chunk.Metadata[domain.MetaChunkID])
}

func TestIngestText_Empty(t *testing.T) {
	svc, idx := newService(&stubEmbedder{}, &stubGenerator{})

	n, err := svc.IngestText(context.Background(), "   \n  ", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stored, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stored)
}

func TestIngestText_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	// the second sentence becomes its own chunk and fails to embed
	svc, idx := newService(&stubEmbedder{failOn: "Bob"}, &stubGenerator{})

	_, err := svc.IngestText(ctx, "Alice builds compilers. Bob writes tests.", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	stored, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stored, "no chunks from a failed ingestion call may be written")
}

func TestAnswer(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{answer: "she builds compilers"}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"Alice builds compilers.": {1, 0, 0},
		"Bob writes tests.":       {0, 1, 0},
		"what does Alice do?":     {1, 0, 0},
	}}
	idx := memory.New(3)
	svc := New(chunker.New(25, 0), embedder, idx, gen, 0.3)

	_, err := svc.IngestText(ctx, "Alice builds compilers. Bob writes tests.", nil)
	require.NoError(t, err)

	answer, sources, err := svc.Answer(ctx, "what does Alice do?", 2, "")
	require.NoError(t, err)
	assert.Equal(t, "she builds compilers", answer)

	// sources are the ranked retrieval result, untouched
	require.Len(t, sources, 2)
	assert.Equal(t, "Alice builds compilers.", sources[0].Chunk.Text)
	assert.Equal(t, "Bob writes tests.", sources[1].Chunk.Text)
	assert.Greater(t, sources[0].Score, sources[1].Score)

	// one system turn with prompt plus context block, one user turn
	require.Len(t, gen.messages, 2)
	system := gen.messages[0]
	assert.Equal(t, domain.RoleSystem, system.Role)
	assert.Contains(t, system.Content, DefaultSystemPrompt)
	assert.Contains(t, system.Content, "Alice builds compilers.\n\nBob writes tests.")
	assert.Equal(t, domain.RoleUser, gen.messages[1].Role)
	assert.Equal(t, "what does Alice do?", gen.messages[1].Content)
	assert.InDelta(t, 0.3, gen.temperature, 1e-9)
}

func TestAnswer_CustomSystemPrompt(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{answer: "ok"}
	svc, _ := newService(&stubEmbedder{}, gen)

	_, err := svc.IngestText(ctx, "One short sentence.", nil)
	require.NoError(t, err)

	_, _, err = svc.Answer(ctx, "anything", 1, "Answer as a pirate.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gen.messages[0].Content, "Answer as a pirate."))
	assert.NotContains(t, gen.messages[0].Content, DefaultSystemPrompt)
}

func TestAnswer_EmptyCollection(t *testing.T) {
	gen := &stubGenerator{answer: "I don't know"}
	svc, _ := newService(&stubEmbedder{}, gen)

	answer, sources, err := svc.Answer(context.Background(), "anything", 3, "")
	require.NoError(t, err)
	assert.Equal(t, "I don't know", answer)
	assert.Empty(t, sources)
}

func TestAnswer_GeneratorError(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{err: errors.New("model unavailable")}
	svc, _ := newService(&stubEmbedder{}, gen)

	_, err := svc.IngestText(ctx, "One short sentence.", nil)
	require.NoError(t, err)

	_, _, err = svc.Answer(ctx, "anything", 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestClearAndCount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&stubEmbedder{}, &stubGenerator{})

	_, err := svc.IngestText(ctx, "One short sentence.", nil)
	require.NoError(t, err)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.Clear(ctx))
	n, err = svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
