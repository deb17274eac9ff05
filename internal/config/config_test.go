package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "knowledge_base", cfg.Store.Collection)
	assert.Equal(t, 1536, cfg.Store.VectorSize)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.3, cfg.Retrieval.Temperature, 1e-9)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Chunking.Size)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("store:\n  type: qdrant\n  qdrant_url: http://localhost:6333\nchunking:\n  size: 240\n  overlap: 40\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qdrant", cfg.Store.Type)
	assert.Equal(t, "http://localhost:6333", cfg.Store.QdrantURL)
	assert.Equal(t, 240, cfg.Chunking.Size)
	assert.Equal(t, 40, cfg.Chunking.Overlap)
	// untouched fields still get defaults
	assert.Equal(t, "knowledge_base", cfg.Store.Collection)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  size: 240\n"), 0o644))

	t.Setenv("CHUNK_SIZE", "777")
	t.Setenv("COLLECTION_NAME", "resume")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.Chunking.Size)
	assert.Equal(t, "resume", cfg.Store.Collection)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}
