// Package engine provides analyzer backends for the monitor.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/axwatch/hostio"
)

// Func adapts a plain function to the hostio.Analyzer interface.
type Func func(ctx context.Context, text string) ([]hostio.Finding, error)

func (f Func) Analyze(ctx context.Context, text string) ([]hostio.Finding, error) {
	return f(ctx, text)
}

// Remote sends text to an HTTP analysis endpoint and decodes findings
// from the response. Requests are retried with exponential backoff.
type Remote struct {
	url        string
	client     *http.Client
	maxRetries int
	logger     *slog.Logger
}

// RemoteOption configures a Remote analyzer.
type RemoteOption func(*Remote)

// WithHTTPClient sets a custom HTTP client. Default: 10s timeout.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithRetries sets the maximum number of retries. Default: 2.
func WithRetries(n int) RemoteOption {
	return func(r *Remote) { r.maxRetries = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) { r.logger = l }
}

// NewRemote creates a Remote analyzer targeting the given URL.
func NewRemote(url string, opts ...RemoteOption) *Remote {
	r := &Remote{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 2,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Findings []hostio.Finding `json:"findings"`
}

// Analyze posts the text and returns the decoded findings.
func (r *Remote) Analyze(ctx context.Context, text string) ([]hostio.Finding, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("engine: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		findings, err := r.once(ctx, body)
		if err == nil {
			return findings, nil
		}
		lastErr = err
		r.logger.Warn("engine: analyze attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("engine: all retries exhausted: %w", lastErr)
}

func (r *Remote) once(ctx context.Context, body []byte) ([]hostio.Finding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("engine: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("engine: status %d", resp.StatusCode)
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("engine: decode: %w", err)
	}
	return out.Findings, nil
}
