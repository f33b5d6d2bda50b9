package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gentaxai/gentax/pkg/conversation"
	"github.com/gentaxai/gentax/pkg/session"
)

var (
	askToolName    = "ask"
	askDescription = "Ask GenTaxAI an Indian tax question (Income Tax, GST, MSME, RBI, SEBI). Answers are grounded in the knowledge base and include citations. Pass session_id to continue a conversation."

	historyToolName    = "history"
	historyDescription = "Return the full transcript of a GenTaxAI session, including the system preamble and every evidence block."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the tax question to answer"`
	SessionID string `json:"session_id,omitempty" jsonschema:"an existing session id to continue; omit to start a new session"`
}

// HistoryInput represents the input arguments for the history tool.
type HistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"the session id to read"`
}

// HistoryOutput is the structured transcript of one session.
type HistoryOutput struct {
	SessionID string         `json:"session_id"`
	Count     int            `json:"count"`
	Turns     []session.Turn `json:"turns"`
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// textResult serializes out as JSON for clients that ignore structured content.
func textResult(out any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, conversation.Answer, error) {
	logger := s.config.Logger
	logger.Debug("MCP ask request", "session_id", input.SessionID)

	ans, err := s.config.Engine.Submit(ctx, input.Question, input.SessionID)
	switch {
	case errors.Is(err, conversation.ErrEmptyQuestion):
		return toolError("question is required"), conversation.Answer{}, nil
	case errors.Is(err, conversation.ErrInference):
		logger.Error("MCP ask failed", "error", err)
		return toolError("LLM error: %v", errors.Unwrap(err)), conversation.Answer{}, nil
	case err != nil:
		return toolError("ask failed: %v", err), conversation.Answer{}, nil
	}

	res, err := textResult(ans)
	if err != nil {
		return toolError("Failed to serialize answer: %v", err), conversation.Answer{}, nil
	}
	return res, *ans, nil
}

func (s *Server) handleHistory(_ context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	if input.SessionID == "" {
		return toolError("session_id is required"), HistoryOutput{}, nil
	}

	turns, err := s.config.Engine.Transcript(input.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return toolError("session %s not found", input.SessionID), HistoryOutput{}, nil
		}
		return toolError("history failed: %v", err), HistoryOutput{}, nil
	}

	out := HistoryOutput{SessionID: input.SessionID, Count: len(turns), Turns: turns}
	res, err := textResult(out)
	if err != nil {
		return toolError("Failed to serialize transcript: %v", err), HistoryOutput{}, nil
	}
	return res, out, nil
}
