package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gentaxai/gentax/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// No .gentax/ directory resolved: LoadConfig returns defaults and
	// SaveConfig errors.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// keyOrder lists config keys in TOML section order for display.
var keyOrder = []string{
	"server.listen",
	"server.static_dir",
	"storage.provider",
	"storage.path",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"storage.redis_addr",
	"storage.redis_prefix",
	"inference.provider",
	"inference.base_url",
	"inference.api_key",
	"inference.model",
	"inference.temperature",
	"inference.max_tokens",
	"inference.timeout",
	"retrieval.provider",
	"retrieval.knowledge_dir",
	"retrieval.endpoint",
	"retrieval.top_k",
	"retrieval.timeout",
	"retrieval.watch",
	"retrieval.cache_size",
	"retrieval.cache_ttl",
	"conversation.system_prompt",
	"conversation.token_budget",
	"events.provider",
	"events.brokers",
	"events.topic",
	"client.api_target",
}

// ValidConfigKeys returns all supported configuration key names in section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range keyOrder {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	var rest []string
	for k := range configKeys {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	return append(result, rest...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the resolved .gentax/ directory.
// Values in the file are decoded over NewDefaultConfig(), so callers always
// receive a fully-populated Config. A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return decodeOver(NewDefaultConfig(), data)
}

// SaveConfig persists the configuration to config.toml in the target .gentax/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a default Config adjusted for the named inference preset.
// Supported presets: "groq", "openai", "ollama".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "groq":
		return cfg, nil

	case "openai":
		cfg.Inference.BaseURL = "https://api.openai.com/v1"
		cfg.Inference.Model = "gpt-4o-mini"
		return cfg, nil

	case "ollama":
		cfg.Inference.Provider = "ollama"
		cfg.Inference.BaseURL = "http://localhost:11434"
		cfg.Inference.Model = "llama3.1:8b"
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"groq", "openai", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config without applying defaults.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	return decodeOver(&Config{}, data)
}

func decodeOver(cfg *Config, data []byte) (*Config, error) {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// ResolvePaths anchors the relative file paths in cfg (session file, SQLite
// database, knowledge directory) to the resolved .gentax/ directory. With no
// .gentax/ directory they stay relative to the working directory.
func ResolvePaths(cfg *Config, configDir string) error {
	ddm := dotdir.NewManager()
	for _, p := range []*string{
		&cfg.Storage.Path,
		&cfg.Storage.SQLitePath,
		&cfg.Retrieval.KnowledgeDir,
	} {
		resolved, err := ddm.Resolve(configDir, *p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", *p, err)
		}
		*p = resolved
	}
	return nil
}
