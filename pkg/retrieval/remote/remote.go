// Package remote is a retrieval gateway backed by an HTTP knowledge service.
// It POSTs {"query", "k"} and accepts either a bare JSON array of snippets
// or an object with a "results" array.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gentaxai/gentax/pkg/retrieval"
)

const maxErrorBody = 512

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type wrappedResponse struct {
	Results []retrieval.Snippet `json:"results"`
}

// Client implements retrieval.Gateway over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// New returns a Client posting to endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("remote retrieval endpoint is required")
	}

	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Retrieve posts the query and decodes the service's snippets.
func (c *Client) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Snippet, error) {
	body, err := json.Marshal(searchRequest{Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("marshal retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", retrieval.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read retrieval response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", retrieval.ErrUnavailable, resp.StatusCode, bytes.TrimSpace(data))
	}

	return decode(data)
}

func decode(data []byte) ([]retrieval.Snippet, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var snippets []retrieval.Snippet
		if err := json.Unmarshal(data, &snippets); err != nil {
			return nil, fmt.Errorf("decode retrieval response: %w", err)
		}
		return snippets, nil
	}

	var wrapped wrappedResponse
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}
	return wrapped.Results, nil
}
