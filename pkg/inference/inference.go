// Package inference defines the chat completion gateway.
package inference

import (
	"context"
	"errors"

	"github.com/gentaxai/gentax/pkg/llm"
)

// ErrEmptyCompletion is returned when a backend answers without any content choice.
var ErrEmptyCompletion = errors.New("inference returned no completion")

// Gateway produces one assistant completion for an ordered transcript.
type Gateway interface {
	Complete(ctx context.Context, msgs []llm.Message) (*llm.Completion, error)
}

// GatewayFunc adapts a function to a Gateway.
type GatewayFunc func(ctx context.Context, msgs []llm.Message) (*llm.Completion, error)

func (f GatewayFunc) Complete(ctx context.Context, msgs []llm.Message) (*llm.Completion, error) {
	return f(ctx, msgs)
}
