package llm

import "time"

// Completion is the provider-agnostic result of a chat completion.
type Completion struct {
	// Model that generated the response
	Model string `json:"model"`

	// Content is the assistant's answer text.
	Content string `json:"content"`

	// Stop reason (e.g., "stop", "length")
	StopReason string `json:"stop_reason,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`

	// Token usage and timing metrics, when the backend reports them.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token counts and timing information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Timing (provider-specific, normalized to nanoseconds where possible)
	TotalDurationNs  int64 `json:"total_duration_ns,omitempty"`
	PromptDurationNs int64 `json:"prompt_duration_ns,omitempty"`
}
