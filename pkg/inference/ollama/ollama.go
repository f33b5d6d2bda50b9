// Package ollama implements the inference gateway for Ollama's /api/chat.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gentaxai/gentax/pkg/inference"
	"github.com/gentaxai/gentax/pkg/llm"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the default chat model.
	DefaultModel = "llama3.1:8b"
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model defaults to DefaultModel if empty.
	Model string

	Temperature float64

	// MaxTokens maps to num_predict. Zero leaves Ollama's default.
	MaxTokens int
}

// Client wraps Ollama's chat API.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// New returns a Client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

// Complete sends a non-streaming chat request.
func (c *Client) Complete(ctx context.Context, msgs []llm.Message) (*llm.Completion, error) {
	temp := c.temperature
	reqBody := chatRequest{
		Model:    c.model,
		Messages: make([]chatMessage, 0, len(msgs)),
		Stream:   false,
		Options:  &chatOptions{Temperature: &temp},
	}
	if c.maxTokens > 0 {
		n := c.maxTokens
		reqBody.Options.NumPredict = &n
	}
	for _, m := range msgs {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", out.Error)
	}
	if out.Message.Role == "" && out.Message.Content == "" {
		return nil, inference.ErrEmptyCompletion
	}

	return &llm.Completion{
		Model:      out.Model,
		Content:    out.Message.Content,
		StopReason: out.DoneReason,
		CreatedAt:  out.CreatedAt,
		Usage: &llm.Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
			TotalDurationNs:  out.TotalDuration,
			PromptDurationNs: out.PromptEvalDuration,
		},
	}, nil
}

var _ inference.Gateway = (*Client)(nil)
