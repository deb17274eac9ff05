// Package vectorstore selects the vector index backend at startup.
package vectorstore

import (
	"context"
	"log"
	"time"

	"persona-rag/internal/domain"
	"persona-rag/internal/vectorstore/memory"
	"persona-rag/internal/vectorstore/qdrant"
)

// Backend names accepted in configuration.
const (
	TypeMemory = "memory"
	TypeQdrant = "qdrant"
)

// Config selects and configures a backend.
type Config struct {
	Type       string
	Collection string
	VectorSize int
	QdrantURL  string
	QdrantKey  string
	Timeout    time.Duration
}

// Open returns the configured vector index and the name of the backend
// actually in use.
//
// Selecting the qdrant backend probes the collection once. If the backend is
// reachable but misconfigured (missing URL) that is a fatal error. If it is
// configured but unreachable, Open logs a warning and falls back to an empty
// in-memory index: availability over consistency — chunks already in the
// remote collection stay invisible for the rest of this process's lifetime.
func Open(ctx context.Context, cfg Config) (domain.VectorIndex, string, error) {
	switch cfg.Type {
	case TypeQdrant:
		idx, err := qdrant.New(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantKey,
			Collection: cfg.Collection,
			VectorSize: cfg.VectorSize,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, "", err
		}
		if err := idx.Ping(ctx); err != nil {
			log.Printf("WARN: qdrant backend unavailable (%v); falling back to an empty in-memory index", err)
			return memory.New(cfg.VectorSize), TypeMemory, nil
		}
		return idx, TypeQdrant, nil
	default:
		return memory.New(cfg.VectorSize), TypeMemory, nil
	}
}
