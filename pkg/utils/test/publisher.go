package testutils

import (
	"context"
	"sync"

	"github.com/gentaxai/gentax/pkg/eventstream"
)

// MockPublisher collects published exchange events in memory
type MockPublisher struct {
	mu     sync.Mutex
	Events []*eventstream.ExchangeCompletedEvent
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishExchange(_ context.Context, event *eventstream.ExchangeCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Published() []*eventstream.ExchangeCompletedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.ExchangeCompletedEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}
