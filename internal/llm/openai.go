// Package llm provides the OpenAI-compatible chat completions client used
// for answer generation and the persona chat loop.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"persona-rag/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// FinishToolCalls is the finish reason signalling the model wants tools run
// before it can answer.
const FinishToolCalls = "tool_calls"

// Message is one wire-format chat turn. Content-only turns cover the RAG
// path; tool fields are used by the persona chat loop.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued request to invoke one named operation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the operation name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares one operation the model may request.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes an operation with a JSON-schema parameter object.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one chat completion call. A zero temperature is omitted from
// the wire request, leaving the model default.
type Request struct {
	Messages    []Message
	Tools       []Tool
	Temperature float64
}

// Config configures the chat completions client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ domain.Generator = (*Client)(nil)

// NewClient creates a chat completions client. A missing API key is a
// configuration error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", domain.ErrConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type wireRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type wireResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete performs one chat completion call and returns the assistant
// message together with the finish reason.
func (c *Client) Complete(ctx context.Context, req Request) (Message, string, error) {
	body, err := json.Marshal(wireRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Message{}, "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Message{}, "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Message{}, "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Message{}, "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, payload)
	}

	var out wireResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return Message{}, "", fmt.Errorf("decode chat response: %w", err)
	}
	if out.Error != nil {
		return Message{}, "", fmt.Errorf("chat completion error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return Message{}, "", fmt.Errorf("chat completion returned no choices")
	}
	return out.Choices[0].Message, out.Choices[0].FinishReason, nil
}

// Generate implements domain.Generator: one completion call over role-tagged
// turns, no tools, no iteration.
func (c *Client) Generate(ctx context.Context, messages []domain.Message, temperature float64) (string, error) {
	wire := make([]Message, len(messages))
	for i, m := range messages {
		wire[i] = Message{Role: m.Role, Content: m.Content}
	}
	msg, _, err := c.Complete(ctx, Request{Messages: wire, Temperature: temperature})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}
