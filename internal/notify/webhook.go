package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/model"
)

// Webhook sends notifications to a generic HTTP endpoint.
type Webhook struct {
	baseNotifier
	url        string
	method     string
	headers    map[string]string
	httpClient *http.Client
}

// webhookPayload is the POST body.
type webhookPayload struct {
	Source  string `json:"source"`
	Event   string `json:"event"`
	Title   string `json:"title"`
	Message string `json:"message"`
	SentAt  string `json:"sent_at"`
}

// Send delivers a notification. POST sends a JSON body; GET sends the same
// fields as query parameters.
func (w *Webhook) Send(ctx context.Context, event model.Event, title, message string) error {
	req, err := w.newRequest(ctx, event, title, message)
	if err != nil {
		return err
	}
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (w *Webhook) newRequest(ctx context.Context, event model.Event, title, message string) (*http.Request, error) {
	p := webhookPayload{
		Source:  "election-monitor",
		Event:   string(event),
		Title:   title,
		Message: message,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}

	switch method := strings.ToUpper(w.method); method {
	case http.MethodGet:
		u, err := url.Parse(w.url)
		if err != nil {
			return nil, fmt.Errorf("webhook: parse url: %w", err)
		}
		q := u.Query()
		q.Set("event", p.Event)
		q.Set("title", p.Title)
		q.Set("message", p.Message)
		u.RawQuery = q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("webhook: create request: %w", err)
		}
		return req, nil

	case http.MethodPost, "":
		body, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("webhook: marshal payload: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("webhook: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil

	default:
		return nil, fmt.Errorf("webhook: unsupported method %q (use GET or POST)", method)
	}
}
