// Package client is a small HTTP client for the chat API, used by the
// terminal frontend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// QueryResult is a grounded answer together with the chunks it was built from.
type QueryResult struct {
	Answer  string           `json:"answer"`
	Sources []map[string]any `json:"sources"`
}

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stats reports the state of the server's vector index.
type Stats struct {
	Collection string `json:"collection"`
	Store      string `json:"store"`
	Chunks     int    `json:"chunks"`
}

// Client talks to a running persona-rag server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Query asks the knowledge base a question and returns the answer with its
// source records.
func (c *Client) Query(ctx context.Context, query string, topK int) (QueryResult, error) {
	var result QueryResult
	err := c.post(ctx, "/rag/query", map[string]any{
		"query": query,
		"top_k": topK,
	}, &result)
	return result, err
}

// Chat sends a message to the persona endpoint and returns the reply.
func (c *Client) Chat(ctx context.Context, message string, history []ChatMessage) (string, error) {
	var resp struct {
		Response string `json:"response"`
	}
	err := c.post(ctx, "/chat", map[string]any{
		"message": message,
		"history": history,
	}, &resp)
	return resp.Response, err
}

// Stats fetches the current index stats.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.get(ctx, "/rag/stats", &stats)
	return stats, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
