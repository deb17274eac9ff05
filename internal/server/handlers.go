package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"persona-rag/internal/domain"
	"persona-rag/internal/llm"
	"persona-rag/internal/persona"
)

// maxUploadBytes bounds PDF uploads.
const maxUploadBytes = 32 << 20

type chatRequest struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type queryRequest struct {
	Query        string `json:"query"`
	TopK         int    `json:"top_k"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

type queryResponse struct {
	Answer  string           `json:"answer"`
	Sources []map[string]any `json:"sources"`
}

type ingestTextRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ingestResponse struct {
	ChunksIndexed int `json:"chunks_indexed"`
}

type statsResponse struct {
	Collection string `json:"collection"`
	Store      string `json:"store"`
	Chunks     int    `json:"chunks"`
}

type recordDetailsRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

type recordQuestionRequest struct {
	Question string `json:"question"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Welcome to %s's chat API", s.persona.Name()),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	response, err := s.persona.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: response})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	answer, sources, err := s.rag.Answer(r.Context(), req.Query, topK, req.SystemPrompt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Answer: answer, Sources: sourceRecords(sources)})
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	n, err := s.rag.IngestText(r.Context(), req.Text, req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{ChunksIndexed: n})
}

func (s *Server) handleIngestPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = header.Filename
	}
	meta := map[string]any{domain.MetaSource: source}

	n, err := s.rag.IngestPDF(r.Context(), bytes.NewReader(data), int64(len(data)), meta)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{ChunksIndexed: n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.rag.Count(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Collection: s.collection,
		Store:      s.store,
		Chunks:     n,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.rag.Clear(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "collection cleared"})
}

func (s *Server) handleRecordDetails(w http.ResponseWriter, r *http.Request) {
	var req recordDetailsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	args := map[string]any{"email": req.Email}
	if req.Name != "" {
		args["name"] = req.Name
	}
	if req.Notes != "" {
		args["notes"] = req.Notes
	}
	if _, err := s.persona.Dispatch(r.Context(), persona.ToolRecordUserDetails, args); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "User details recorded"})
}

func (s *Server) handleRecordQuestion(w http.ResponseWriter, r *http.Request) {
	var req recordQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	if _, err := s.persona.Dispatch(r.Context(), persona.ToolRecordUnknownQuestion,
		map[string]any{"question": req.Question}); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Question recorded"})
}

// sourceRecords flattens each scored chunk into its metadata plus the
// similarity score, the shape clients audit.
func sourceRecords(sources []domain.ScoredChunk) []map[string]any {
	records := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		record := make(map[string]any, len(src.Chunk.Metadata)+1)
		for k, v := range src.Chunk.Metadata {
			record[k] = v
		}
		record["score"] = src.Score
		records = append(records, record)
	}
	return records
}

func decodeJSON(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("WARN: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps core failures onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConfig):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrStorage):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
