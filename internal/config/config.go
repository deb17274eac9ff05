package config

import (
	"errors"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// OpenAIConfig configures the embedding and generation collaborators.
type OpenAIConfig struct {
	BaseURL        string `yaml:"base_url" env:"OPENAI_BASE_URL"`
	APIKey         string `yaml:"-" env:"OPENAI_API_KEY"`
	EmbeddingModel string `yaml:"embedding_model" env:"EMBEDDING_MODEL"`
	ChatModel      string `yaml:"chat_model" env:"CHAT_MODEL"`
	TimeoutSecs    int    `yaml:"timeout_secs" env:"OPENAI_TIMEOUT_SECS"`
}

// ChunkingConfig configures how documents are split before embedding.
type ChunkingConfig struct {
	Size    int `yaml:"size" env:"CHUNK_SIZE"`
	Overlap int `yaml:"overlap" env:"CHUNK_OVERLAP"`
}

// StoreConfig selects and configures the vector index backend.
type StoreConfig struct {
	Type        string `yaml:"type" env:"VECTOR_STORE"`
	Collection  string `yaml:"collection" env:"COLLECTION_NAME"`
	VectorSize  int    `yaml:"vector_size" env:"VECTOR_SIZE"`
	QdrantURL   string `yaml:"qdrant_url" env:"QDRANT_URL"`
	QdrantKey   string `yaml:"-" env:"QDRANT_API_KEY"`
	TimeoutSecs int    `yaml:"timeout_secs" env:"QDRANT_TIMEOUT_SECS"`
}

// RetrievalConfig tunes the answer path.
type RetrievalConfig struct {
	TopK        int     `yaml:"top_k" env:"TOP_K"`
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
}

// PersonaConfig points at the personal knowledge base the assistant
// answers from.
type PersonaConfig struct {
	Name         string `yaml:"name" env:"PERSONA_NAME"`
	SummaryPath  string `yaml:"summary_path" env:"SUMMARY_PATH"`
	LinkedInPath string `yaml:"linkedin_path" env:"LINKEDIN_PATH"`
}

// PushoverConfig holds push notification credentials. Both empty disables
// delivery.
type PushoverConfig struct {
	Token string `yaml:"-" env:"PUSHOVER_TOKEN"`
	User  string `yaml:"-" env:"PUSHOVER_USER"`
}

// Config is the root application configuration.
type Config struct {
	Addr      string          `yaml:"addr" env:"ADDR"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Persona   PersonaConfig   `yaml:"persona"`
	Pushover  PushoverConfig  `yaml:"pushover"`
}

// Load reads an optional YAML config file, overrides it with environment
// variables, and fills remaining zero values with defaults. A missing file
// is not an error; an empty path skips the file layer entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 30
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "knowledge_base"
	}
	if cfg.Store.VectorSize == 0 {
		cfg.Store.VectorSize = 1536
	}
	if cfg.Store.TimeoutSecs == 0 {
		cfg.Store.TimeoutSecs = 15
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.Temperature == 0 {
		cfg.Retrieval.Temperature = 0.3
	}
	if cfg.Persona.SummaryPath == "" {
		cfg.Persona.SummaryPath = "me/summary.txt"
	}
	if cfg.Persona.LinkedInPath == "" {
		cfg.Persona.LinkedInPath = "me/linkedin.pdf"
	}
}

// OpenAITimeout returns the configured OpenAI timeout as a duration.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSecs) * time.Second
}

// StoreTimeout returns the configured vector store timeout as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutSecs) * time.Second
}
