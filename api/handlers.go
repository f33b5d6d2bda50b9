package api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gentaxai/gentax/pkg/conversation"
	"github.com/gentaxai/gentax/pkg/evidence"
	"github.com/gentaxai/gentax/pkg/session"
)

const fallbackIndex = "<h1>GenTaxAI</h1><p>static/index.html not found.</p>"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// chatBody is the wire form of ChatRequest; a nil Question means the field
// was absent or null.
type chatBody struct {
	Question  *string `json:"question"`
	SessionID *string `json:"session_id"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	Answer    string              `json:"answer"`
	SessionID string              `json:"session_id"`
	Citations []evidence.Citation `json:"citations"`
}

// SessionResponse is returned by POST /api/new-session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// SessionListResponse is returned by GET /api/sessions.
type SessionListResponse struct {
	Count    int      `json:"count"`
	Sessions []string `json:"sessions"`
}

// TranscriptResponse is returned by GET /api/sessions/:id.
type TranscriptResponse struct {
	SessionID string         `json:"session_id"`
	Count     int            `json:"count"`
	Turns     []session.Turn `json:"turns"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")

	page, err := os.ReadFile(filepath.Join(s.config.StaticDir, "index.html"))
	if err != nil {
		return c.SendString(fallbackIndex)
	}
	return c.Send(page)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "healthy", Service: ServiceName})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var body chatBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Detail: "invalid request body"})
	}
	if body.Question == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Detail: "question: field required"})
	}

	req := ChatRequest{Question: *body.Question}
	if body.SessionID != nil {
		req.SessionID = strings.TrimSpace(*body.SessionID)
	}

	ans, err := s.engine.Submit(c.Context(), req.Question, req.SessionID)
	switch {
	case err == nil:
		return c.JSON(ChatResponse{
			Answer:    ans.Answer,
			SessionID: ans.SessionID,
			Citations: ans.Citations,
		})
	case errors.Is(err, conversation.ErrEmptyQuestion):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "Empty question"})
	case errors.Is(err, conversation.ErrInference):
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Detail: "LLM error: " + errors.Unwrap(err).Error(),
		})
	default:
		s.logger.Error("chat failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: "internal error"})
	}
}

func (s *Server) handleNewSession(c *fiber.Ctx) error {
	return c.JSON(SessionResponse{
		SessionID: s.engine.NewSession(),
		Message:   "New session created",
	})
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	ids := s.engine.Sessions()
	return c.JSON(SessionListResponse{Count: len(ids), Sessions: ids})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "session id required"})
	}

	turns, err := s.engine.Transcript(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Detail: "Session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: err.Error()})
	}

	return c.JSON(TranscriptResponse{SessionID: id, Count: len(turns), Turns: turns})
}
