package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"persona-rag/internal/chunker"
	"persona-rag/internal/config"
	"persona-rag/internal/domain"
	"persona-rag/internal/embedding"
	"persona-rag/internal/llm"
	"persona-rag/internal/notify"
	"persona-rag/internal/persona"
	"persona-rag/internal/rag"
	"persona-rag/internal/server"
	"persona-rag/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Assemble components
	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL:   cfg.OpenAI.BaseURL,
		APIKey:    cfg.OpenAI.APIKey,
		Model:     cfg.OpenAI.EmbeddingModel,
		Dimension: cfg.Store.VectorSize,
		Timeout:   cfg.OpenAITimeout(),
	})
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	index, storeName, err := vectorstore.Open(ctx, vectorstore.Config{
		Type:       cfg.Store.Type,
		Collection: cfg.Store.Collection,
		VectorSize: cfg.Store.VectorSize,
		QdrantURL:  cfg.Store.QdrantURL,
		QdrantKey:  cfg.Store.QdrantKey,
		Timeout:    cfg.StoreTimeout(),
	})
	if err != nil {
		log.Fatalf("vector store init failed: %v", err)
	}

	generator, err := llm.NewClient(llm.Config{
		BaseURL: cfg.OpenAI.BaseURL,
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.ChatModel,
		Timeout: cfg.OpenAITimeout(),
	})
	if err != nil {
		log.Fatalf("llm init failed: %v", err)
	}

	ragSvc := rag.New(
		chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap),
		embedder, index, generator,
		cfg.Retrieval.Temperature,
	)

	notifier := notify.New(cfg.Pushover.Token, cfg.Pushover.User)
	if !notifier.Configured() {
		log.Printf("WARN: pushover not configured, notifications will be logged only")
	}

	profile, err := persona.LoadProfile(cfg.Persona.Name, cfg.Persona.SummaryPath, cfg.Persona.LinkedInPath)
	if err != nil {
		log.Fatalf("failed to load persona profile: %v", err)
	}
	p, err := persona.New(profile, generator, notifier)
	if err != nil {
		log.Fatalf("persona init failed: %v", err)
	}

	bootstrapKnowledge(ctx, cfg, ragSvc, profile)

	srv := server.New(server.Config{
		Addr:        cfg.Addr,
		Store:       storeName,
		Collection:  cfg.Store.Collection,
		DefaultTopK: cfg.Retrieval.TopK,
	}, ragSvc, p)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Printf("listening on %s (store=%s collection=%s)", cfg.Addr, storeName, cfg.Store.Collection)

	select {
	case err := <-errCh:
		log.Fatalf("server failed: %v", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// bootstrapKnowledge seeds an empty index from the profile documents so a
// fresh deployment can answer questions immediately. Failures are logged,
// not fatal: the server still serves chat and later ingestion.
func bootstrapKnowledge(ctx context.Context, cfg *config.Config, ragSvc *rag.Service, profile persona.Profile) {
	count, err := ragSvc.Count(ctx)
	if err != nil {
		log.Printf("WARN: could not check index size, skipping bootstrap: %v", err)
		return
	}
	if count > 0 {
		log.Printf("index already holds %d chunks, skipping bootstrap", count)
		return
	}

	if profile.Summary != "" {
		meta := map[string]any{domain.MetaSource: cfg.Persona.SummaryPath}
		n, err := ragSvc.IngestText(ctx, profile.Summary, meta)
		if err != nil {
			log.Printf("WARN: summary bootstrap failed: %v", err)
		} else {
			log.Printf("indexed %d chunks from %s", n, cfg.Persona.SummaryPath)
		}
	}
	if cfg.Persona.LinkedInPath != "" {
		n, err := ragSvc.IngestPDFFile(ctx, cfg.Persona.LinkedInPath, nil)
		if err != nil {
			log.Printf("WARN: linkedin bootstrap failed: %v", err)
		} else {
			log.Printf("indexed %d chunks from %s", n, cfg.Persona.LinkedInPath)
		}
	}
}
