package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/gentaxai/gentax/pkg/llm"
)

// MockLLM is a test inference gateway that records every request
type MockLLM struct {
	mu sync.Mutex

	// Reply is returned as the completion content
	Reply string

	// Err, when set, fails every completion
	Err error

	// Delay blocks Complete until it elapses or the context is done
	Delay time.Duration

	Requests [][]llm.Message
}

func NewMockLLM(reply string) *MockLLM {
	return &MockLLM{Reply: reply}
}

func (m *MockLLM) Complete(ctx context.Context, msgs []llm.Message) (*llm.Completion, error) {
	cp := make([]llm.Message, len(msgs))
	copy(cp, msgs)

	m.mu.Lock()
	m.Requests = append(m.Requests, cp)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}

	return &llm.Completion{
		Model:      "mock",
		Content:    m.Reply,
		StopReason: "stop",
		CreatedAt:  time.Now(),
		Usage:      &llm.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}, nil
}

// LastRequest returns the most recent message list, or nil.
func (m *MockLLM) LastRequest() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
