// Package gateway provides the request/response client for the election
// analytics backend REST API. It handles connection pooling, retries on
// transient failures with exponential backoff, and a circuit breaker that
// suspends requests while the backend keeps failing.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/backoff"
	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/logger"
)

// ErrCircuitOpen is returned when the circuit breaker is open and requests
// are being skipped to avoid hammering a failing backend.
var ErrCircuitOpen = errors.New("circuit breaker open: backend requests temporarily suspended")

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// APIError is a non-retryable error response from the backend.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Path, e.StatusCode, e.Message)
}

// NotFound reports whether the backend answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// circuitBreaker tracks consecutive failures and backs off when the backend
// keeps failing.
type circuitBreaker struct {
	mu               sync.Mutex
	consecutiveFails int
	cooldownUntil    time.Time
	now              func() time.Time
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	cb.consecutiveFails = 0
	cb.cooldownUntil = time.Time{}
	cb.mu.Unlock()
}

// recordFailure increments the failure counter and, after 10 consecutive
// failures, opens the breaker for a cooldown that grows to at most 5 minutes.
func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	cb.consecutiveFails++
	if cb.consecutiveFails >= 10 {
		cooldown := time.Duration(cb.consecutiveFails-9) * 30 * time.Second
		if cooldown > 5*time.Minute {
			cooldown = 5 * time.Minute
		}
		cb.cooldownUntil = cb.now().Add(cooldown)
	}
	cb.mu.Unlock()
}

func (cb *circuitBreaker) shouldSkip() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.now().Before(cb.cooldownUntil)
}

// Client is the backend HTTP client with connection pooling, circuit
// breaker, and retry logic.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
	breaker    *circuitBreaker
	retry      backoff.Policy
}

// NewClient creates a Client for the backend at baseURL. retry.MaxAttempts
// is the number of retries after the first try.
func NewClient(baseURL string, timeout time.Duration, retry backoff.Policy, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		log:     log,
		breaker: &circuitBreaker{now: time.Now},
		retry:   retry,
	}
}

// BaseURL returns the backend base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// getJSON fetches path and decodes the body into v. A 200 response whose
// envelope carries "success": false is reported as an APIError.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}

	var envelope errorBody
	if json.Unmarshal(body, &envelope) == nil && envelope.Success != nil && !*envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = envelope.Message
		}
		return &APIError{Path: path, StatusCode: http.StatusOK, Message: msg}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response for %s: %w", path, err)
	}
	return nil
}

// get performs a GET with retries for transient errors (transport errors,
// 429, 5xx). Individual retries are logged at DEBUG; only the final failure
// is logged at WARN.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.fetch(ctx, path, c.retry.MaxAttempts)
}

// fetch performs a GET with up to maxRetries retries after the first try.
func (c *Client) fetch(ctx context.Context, path string, maxRetries int) ([]byte, error) {
	if c.breaker.shouldSkip() {
		c.log.Debug("Circuit breaker open, skipping request", "path", path)
		return nil, ErrCircuitOpen
	}

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retry.Delay(attempt - 1)
			c.log.Debug("Retrying backend request",
				"path", path,
				"attempt", fmt.Sprintf("%d/%d", attempt, maxRetries),
				"backoff", delay)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request for %s: %w", path, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request for %s failed: %w", path, err)
			c.log.Debug("Backend request failed, will retry",
				"path", path, "attempt", attempt+1, "error", err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		if readErr != nil {
			lastErr = fmt.Errorf("reading response for %s: %w", path, readErr)
			c.log.Debug("Failed to read backend response, will retry",
				"path", path, "attempt", attempt+1, "error", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &APIError{Path: path, StatusCode: resp.StatusCode, Message: errorMessage(body)}
			c.log.Debug("Backend returned retryable status, will retry",
				"path", path, "status", resp.StatusCode, "attempt", attempt+1)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{Path: path, StatusCode: resp.StatusCode, Message: errorMessage(body)}
		}

		c.breaker.recordSuccess()
		c.log.Debug("Backend request completed", "path", path, "status", resp.StatusCode)
		return body, nil
	}

	c.breaker.recordFailure()
	c.log.Warn("Backend request failed after all retries",
		"path", path, "attempts", maxRetries+1, "error", lastErr)
	return nil, lastErr
}

func errorMessage(body []byte) string {
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
