package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeCompleted is emitted after an exchange is answered and persisted.
	EventTypeExchangeCompleted = "gentax.exchange.completed"
)

// ExchangeCompletedEvent is a transport-neutral event payload for one
// answered question. It carries counts and timings only, never turn content.
type ExchangeCompletedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	SessionID     string    `json:"session_id"`
	Model         string    `json:"model,omitempty"`
	CitationCount int       `json:"citation_count"`
	TurnCount     int       `json:"turn_count"`
	PromptTokens  int       `json:"prompt_tokens,omitempty"`
	Timing        Timing    `json:"timing"`
}

// Timing captures how long each stage of an exchange took.
type Timing struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	RetrievalMs int64     `json:"retrieval_ms"`
	InferenceMs int64     `json:"inference_ms"`
	DurationMs  int64     `json:"duration_ms"`
}

// NewExchangeCompletedEvent stamps an event for sessionID with a fresh id.
func NewExchangeCompletedEvent(sessionID string, now time.Time) *ExchangeCompletedEvent {
	return &ExchangeCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangeCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		SessionID:     sessionID,
	}
}
