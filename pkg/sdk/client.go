// Package permitnav is the Go client for the permitnav HTTP API.
package permitnav

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a permitnav server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("permitnav: base URL required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o.apply(c)
	}
	return c, nil
}

// Source identifies one permit an answer was grounded in.
type Source struct {
	PermitID   string  `json:"permit_id"`
	PermitName string  `json:"permit_name"`
	Agency     string  `json:"agency"`
	Score      float64 `json:"score"`
}

// Answer is a generated answer with its sources.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Ask sends a question and returns the generated answer.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	var out Answer
	err := c.post(ctx, "/api/v1/ask", map[string]string{"question": question}, &out)
	return out, err
}

// SearchMatch is one keyword search result.
type SearchMatch struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Agency      string  `json:"agency"`
	Description string  `json:"description"`
	ApplyURL    string  `json:"apply_url"`
	Score       float64 `json:"score"`
}

type searchResult struct {
	Matches []SearchMatch `json:"matches"`
	Total   int           `json:"total"`
}

// Search runs the keyword fallback search.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchMatch, error) {
	body := map[string]any{"query": query}
	if limit > 0 {
		body["limit"] = limit
	}
	var out searchResult
	if err := c.post(ctx, "/api/v1/search", body, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// Usage is the daily quota snapshot.
type Usage struct {
	Used      int64     `json:"used"`
	Ceiling   int64     `json:"ceiling"`
	Remaining int64     `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

// Usage returns today's quota consumption.
func (c *Client) Usage(ctx context.Context) (Usage, error) {
	var out Usage
	err := c.get(ctx, "/api/v1/usage", &out)
	return out, err
}

// Health is the server health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health returns the server health report. A degraded server still returns
// a report, not an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("permitnav: health request: %w", err)
	}
	defer resp.Body.Close()

	var out Health
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Health{}, fmt.Errorf("permitnav: decode health response: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("permitnav: encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("permitnav: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("permitnav: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("permitnav: decode response: %w", err)
		}
	}
	return nil
}
