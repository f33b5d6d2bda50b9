// Package inferenceutils builds the configured inference gateway.
package inferenceutils

import (
	"fmt"
	"os"

	"github.com/gentaxai/gentax/pkg/inference"
	"github.com/gentaxai/gentax/pkg/inference/ollama"
	"github.com/gentaxai/gentax/pkg/inference/openai"
)

// apiKeyEnv lists the fallback environment variables for an OpenAI-compatible key.
var apiKeyEnv = []string{"GROQ_API_KEY", "OPENAI_API_KEY"}

type NewGatewayOpts struct {
	ProviderType string
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
}

func NewGateway(o *NewGatewayOpts) (inference.Gateway, error) {
	switch o.ProviderType {
	case "openai", "groq":
		key := ResolveAPIKey(o.APIKey)
		if key == "" {
			return nil, fmt.Errorf("no API key for provider %s: set inference.api_key, GENTAX_INFERENCE_API_KEY or GROQ_API_KEY", o.ProviderType)
		}
		return openai.New(openai.Config{
			BaseURL:     o.BaseURL,
			APIKey:      key,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
		})
	case "ollama":
		baseURL := o.BaseURL
		if baseURL == openai.DefaultBaseURL {
			// the config default targets Groq; fall back to a local Ollama
			baseURL = ""
		}
		return ollama.New(ollama.Config{
			BaseURL:     baseURL,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", o.ProviderType)
	}
}

// ResolveAPIKey returns configured, or the first non-empty fallback env var.
func ResolveAPIKey(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range apiKeyEnv {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
