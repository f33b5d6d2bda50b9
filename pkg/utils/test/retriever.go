package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gentaxai/gentax/pkg/retrieval"
)

// MockRetriever is a test retrieval gateway that returns canned snippets
type MockRetriever struct {
	mu sync.Mutex

	Snippets []retrieval.Snippet

	// Err, when set, is returned instead of snippets
	Err error

	// Panic causes Retrieve to panic with this value
	Panic any

	// Delay blocks Retrieve until it elapses or the context is done
	Delay time.Duration

	Queries []string
}

func NewMockRetriever(snippets ...retrieval.Snippet) *MockRetriever {
	return &MockRetriever{Snippets: snippets}
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Snippet, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, fmt.Sprintf("%d|%s", k, query))
	m.mu.Unlock()

	if m.Panic != nil {
		panic(m.Panic)
	}

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
	return m.Snippets, nil
}

func (m *MockRetriever) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}
