// Package api provides the HTTP API for asking questions and inspecting sessions.
package api

import "net/http"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// StaticDir holds index.html and assets served under /static
	StaticDir string

	// MCPHandler, when set, is mounted at /mcp
	MCPHandler http.Handler
}
