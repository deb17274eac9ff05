// Package server exposes the chat and RAG operations over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"persona-rag/internal/persona"
	"persona-rag/internal/rag"
)

// Config holds server configuration.
type Config struct {
	Addr string
	// Store is the name of the vector index backend actually in use,
	// reported by /rag/stats so a degraded fallback is visible.
	Store string
	// Collection is the vector collection name, also reported in stats.
	Collection string
	// DefaultTopK applies when a query request does not set top_k.
	DefaultTopK int
}

// Server wires the persona chat and the RAG core to HTTP routes.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux

	rag     *rag.Service
	persona *persona.Persona

	store       string
	collection  string
	defaultTopK int
}

// New creates the HTTP server and registers all routes.
func New(cfg Config, ragSvc *rag.Service, p *persona.Persona) *Server {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 3
	}
	s := &Server{
		router:      http.NewServeMux(),
		rag:         ragSvc,
		persona:     p,
		store:       cfg.Store,
		collection:  cfg.Collection,
		defaultTopK: cfg.DefaultTopK,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      corsMiddleware(s.router),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleRoot)
	s.router.HandleFunc("POST /chat", s.handleChat)
	s.router.HandleFunc("POST /rag/query", s.handleQuery)
	s.router.HandleFunc("POST /rag/ingest/text", s.handleIngestText)
	s.router.HandleFunc("POST /rag/ingest/pdf", s.handleIngestPDF)
	s.router.HandleFunc("GET /rag/stats", s.handleStats)
	s.router.HandleFunc("POST /rag/clear", s.handleClear)
	s.router.HandleFunc("POST /record-details", s.handleRecordDetails)
	s.router.HandleFunc("POST /record-question", s.handleRecordQuestion)
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
