package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent gentax configuration stored as config.toml
// in the .gentax/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	Server       ServerConfig       `toml:"server"`
	Storage      StorageConfig      `toml:"storage"`
	Inference    InferenceConfig    `toml:"inference"`
	Retrieval    RetrievalConfig    `toml:"retrieval"`
	Conversation ConversationConfig `toml:"conversation"`
	Events       EventsConfig       `toml:"events"`
	Client       ClientConfig       `toml:"client"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen    string `toml:"listen,omitempty"`
	StaticDir string `toml:"static_dir,omitempty"`
}

// StorageConfig selects and configures the session store backend.
// Provider is one of "file", "sqlite", "postgres" or "redis".
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	Path        string `toml:"path,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	RedisAddr   string `toml:"redis_addr,omitempty"`
	RedisPrefix string `toml:"redis_prefix,omitempty"`
}

// InferenceConfig configures the chat completion backend.
// Provider is one of "openai" (any OpenAI-compatible endpoint, Groq by
// default) or "ollama".
type InferenceConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	BaseURL     string  `toml:"base_url,omitempty"`
	APIKey      string  `toml:"api_key,omitempty"`
	Model       string  `toml:"model,omitempty"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens,omitempty"`
	Timeout     string  `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout, returning zero when unset or invalid.
func (c InferenceConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout)
}

// RetrievalConfig configures the knowledge retrieval backend.
// Provider is one of "keyword", "remote" or "none".
type RetrievalConfig struct {
	Provider     string `toml:"provider,omitempty"`
	KnowledgeDir string `toml:"knowledge_dir,omitempty"`
	Endpoint     string `toml:"endpoint,omitempty"`
	TopK         int    `toml:"top_k,omitempty"`
	Timeout      string `toml:"timeout,omitempty"`
	Watch        bool   `toml:"watch"`
	CacheSize    int    `toml:"cache_size,omitempty"`
	CacheTTL     string `toml:"cache_ttl,omitempty"`
}

// TimeoutDuration parses Timeout, returning zero when unset or invalid.
func (c RetrievalConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout)
}

// CacheTTLDuration parses CacheTTL, returning zero when unset or invalid.
func (c RetrievalConfig) CacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL)
}

// ConversationConfig holds transcript settings. An empty SystemPrompt means
// the built-in preamble.
type ConversationConfig struct {
	SystemPrompt string `toml:"system_prompt,omitempty"`
	TokenBudget  int    `toml:"token_budget,omitempty"`
}

// EventsConfig configures exchange event publishing.
// Provider is one of "nop" or "kafka"; Brokers is comma separated.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers on commas, dropping blanks.
func (c EventsConfig) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ClientConfig holds settings for CLI commands that talk to a running
// server (gentax chat). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":     stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.static_dir": stringKey(func(c *Config) *string { return &c.Server.StaticDir }),

	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.path":         stringKey(func(c *Config) *string { return &c.Storage.Path }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.redis_addr":   stringKey(func(c *Config) *string { return &c.Storage.RedisAddr }),
	"storage.redis_prefix": stringKey(func(c *Config) *string { return &c.Storage.RedisPrefix }),

	"inference.provider": stringKey(func(c *Config) *string { return &c.Inference.Provider }),
	"inference.base_url": stringKey(func(c *Config) *string { return &c.Inference.BaseURL }),
	"inference.api_key":  stringKey(func(c *Config) *string { return &c.Inference.APIKey }),
	"inference.model":    stringKey(func(c *Config) *string { return &c.Inference.Model }),
	"inference.temperature": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Inference.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for inference.temperature: %w", err)
			}
			c.Inference.Temperature = f
			return nil
		},
	},
	"inference.max_tokens": intKey("inference.max_tokens", func(c *Config) *int { return &c.Inference.MaxTokens }),
	"inference.timeout":    durationKey("inference.timeout", func(c *Config) *string { return &c.Inference.Timeout }),

	"retrieval.provider":      stringKey(func(c *Config) *string { return &c.Retrieval.Provider }),
	"retrieval.knowledge_dir": stringKey(func(c *Config) *string { return &c.Retrieval.KnowledgeDir }),
	"retrieval.endpoint":      stringKey(func(c *Config) *string { return &c.Retrieval.Endpoint }),
	"retrieval.top_k":         intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),
	"retrieval.timeout":       durationKey("retrieval.timeout", func(c *Config) *string { return &c.Retrieval.Timeout }),
	"retrieval.watch": {
		get: func(c *Config) string { return strconv.FormatBool(c.Retrieval.Watch) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.watch: %w", err)
			}
			c.Retrieval.Watch = b
			return nil
		},
	},
	"retrieval.cache_size": intKey("retrieval.cache_size", func(c *Config) *int { return &c.Retrieval.CacheSize }),
	"retrieval.cache_ttl":  durationKey("retrieval.cache_ttl", func(c *Config) *string { return &c.Retrieval.CacheTTL }),

	"conversation.system_prompt": stringKey(func(c *Config) *string { return &c.Conversation.SystemPrompt }),
	"conversation.token_budget":  intKey("conversation.token_budget", func(c *Config) *int { return &c.Conversation.TokenBudget }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}
