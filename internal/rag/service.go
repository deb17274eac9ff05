// Package rag is the retrieval-augmented generation core: ingestion of text
// and PDF sources into the vector index, and grounded answering over it.
package rag

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"persona-rag/internal/chunker"
	"persona-rag/internal/domain"
	"persona-rag/internal/extract"
)

// DefaultSystemPrompt is used when the caller supplies no system prompt.
const DefaultSystemPrompt = "You are a helpful assistant. Answer the question based only on the provided context."

// SourceDirectText labels chunks ingested without a caller-supplied source.
const SourceDirectText = "direct_text"

// Service orchestrates chunking, embedding, indexing and retrieval. It holds
// no chunk state of its own beyond transient in-flight buffers; the vector
// index owns all stored chunks.
type Service struct {
	splitter    *chunker.Splitter
	embedder    domain.Embedder
	index       domain.VectorIndex
	generator   domain.Generator
	temperature float64
}

// New assembles the RAG core from its collaborators.
func New(splitter *chunker.Splitter, embedder domain.Embedder, index domain.VectorIndex, generator domain.Generator, temperature float64) *Service {
	if temperature == 0 {
		temperature = 0.3
	}
	return &Service{
		splitter:    splitter,
		embedder:    embedder,
		index:       index,
		generator:   generator,
		temperature: temperature,
	}
}

// IngestText chunks, embeds and indexes the given text, returning the number
// of chunks written. Caller metadata is preserved verbatim on every chunk
// and merged with source, chunk_id, content and created_at.
//
// Ingestion is all-or-nothing: every chunk is embedded before anything is
// written, and any embedding failure aborts the call with no partial batch
// left in the index.
func (s *Service) IngestText(ctx context.Context, text string, meta map[string]any) (int, error) {
	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return 0, nil
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		vector, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}

		md := make(map[string]any, len(meta)+4)
		for k, v := range meta {
			md[k] = v
		}
		if _, ok := md[domain.MetaSource]; !ok {
			md[domain.MetaSource] = SourceDirectText
		}
		md[domain.MetaChunkID] = i
		md[domain.MetaContent] = piece
		md[domain.MetaCreatedAt] = createdAt

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.NewString(),
			Text:     piece,
			Vector:   vector,
			Metadata: md,
		})
	}

	if err := s.index.Upsert(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// IngestPDF extracts text from a PDF byte stream and indexes it. Pages
// without extractable text are skipped; the rest are concatenated with a
// single separating space before chunking.
func (s *Service) IngestPDF(ctx context.Context, r io.ReaderAt, size int64, meta map[string]any) (int, error) {
	text, err := extract.PDF(r, size)
	if err != nil {
		return 0, err
	}
	return s.IngestText(ctx, text, meta)
}

// IngestPDFFile indexes a PDF from disk, defaulting the source label to the
// given path.
func (s *Service) IngestPDFFile(ctx context.Context, path string, meta map[string]any) (int, error) {
	text, err := extract.PDFFile(path)
	if err != nil {
		return 0, err
	}
	if meta == nil {
		meta = map[string]any{domain.MetaSource: path}
	}
	return s.IngestText(ctx, text, meta)
}

// Search embeds the query and returns the topK nearest chunks.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, vector, topK)
}

// Answer retrieves the topK chunks nearest the query, assembles their
// contents into a context block, and asks the generator for a grounded
// answer in a single call. The returned sources are exactly the ranked
// retrieval result, unmodified, so callers can audit what grounded the
// answer.
func (s *Service) Answer(ctx context.Context, query string, topK int, systemPrompt string) (string, []domain.ScoredChunk, error) {
	sources, err := s.Search(ctx, query, topK)
	if err != nil {
		return "", nil, err
	}

	contexts := make([]string, 0, len(sources))
	for _, src := range sources {
		if content, ok := src.Chunk.Metadata[domain.MetaContent].(string); ok {
			contexts = append(contexts, content)
			continue
		}
		contexts = append(contexts, src.Chunk.Text)
	}

	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt + "\n\nContext:\n" + strings.Join(contexts, "\n\n")},
		{Role: domain.RoleUser, Content: query},
	}

	answer, err := s.generator.Generate(ctx, messages, s.temperature)
	if err != nil {
		return "", nil, err
	}
	return answer, sources, nil
}

// Count reports the number of chunks in the index.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// Clear drops all chunks from the index.
func (s *Service) Clear(ctx context.Context) error {
	return s.index.Clear(ctx)
}
