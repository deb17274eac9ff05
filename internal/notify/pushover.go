// Package notify delivers short push notifications via Pushover.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

// Pushover sends push notifications. Without credentials it degrades to
// logging the message locally instead of failing.
type Pushover struct {
	endpoint string
	token    string
	user     string
	client   *http.Client
}

// New creates a Pushover notifier. Empty token or user disables delivery.
func New(token, user string) *Pushover {
	return &Pushover{
		endpoint: DefaultEndpoint,
		token:    token,
		user:     user,
		client:   &http.Client{},
	}
}

// Configured reports whether delivery credentials are present.
func (p *Pushover) Configured() bool {
	return p.token != "" && p.user != ""
}

// Push delivers one message.
func (p *Pushover) Push(ctx context.Context, text string) error {
	if !p.Configured() {
		log.Printf("push (pushover not configured): %s", text)
		return nil
	}

	form := url.Values{
		"token":   {p.token},
		"user":    {p.user},
		"message": {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push failed: status %s", resp.Status)
	}
	return nil
}
