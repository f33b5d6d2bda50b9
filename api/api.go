package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gentaxai/gentax/pkg/conversation"
	"github.com/gentaxai/gentax/pkg/logger"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "GenTaxAI Chatbot"

// Server is the API server in front of the conversation engine.
type Server struct {
	config Config
	engine *conversation.Engine
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server and registers its routes.
func NewServer(config Config, engine *conversation.Engine, l *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("conversation engine is required")
	}
	if l == nil {
		l = logger.Nop()
	}
	if config.StaticDir == "" {
		config.StaticDir = "static"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())

	s := &Server{
		config: config,
		engine: engine,
		logger: l,
		app:    app,
	}

	app.Get("/", s.handleIndex)
	app.Static("/static", config.StaticDir)

	app.Get("/api/health", s.handleHealth)
	app.Post("/api/chat", s.handleChat)
	app.Post("/api/new-session", s.handleNewSession)
	app.Get("/api/sessions", s.handleListSessions)
	app.Get("/api/sessions/:id", s.handleGetSession)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"static_dir", s.config.StaticDir,
		"mcp", s.config.MCPHandler != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler renders fiber errors in the same {"detail": ...} shape as
// the handlers.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Detail: err.Error()})
}
