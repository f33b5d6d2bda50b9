package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --storage
// on both "gentax serve" and "gentax sessions").
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "inference.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen            = "listen"
	FlagStaticDir         = "static-dir"
	FlagStorage           = "storage"
	FlagStoragePath       = "storage-path"
	FlagSQLite            = "sqlite"
	FlagPostgres          = "postgres"
	FlagRedisAddr         = "redis-addr"
	FlagInferenceProvider = "inference-provider"
	FlagInferenceURL      = "inference-url"
	FlagModel             = "model"
	FlagMaxTokens         = "max-tokens"
	FlagRetrieval         = "retrieval"
	FlagKnowledgeDir      = "knowledge-dir"
	FlagRetrievalEndpoint = "retrieval-endpoint"
	FlagTopK              = "top-k"
	FlagEvents            = "events"
	FlagEventsBrokers     = "events-brokers"
	FlagAPITarget         = "api-target"
)

// Registry holds every flag definition shared across gentax commands.
var Registry = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the HTTP API to listen on",
	},
	FlagStaticDir: {
		Name:        "static-dir",
		ViperKey:    "server.static_dir",
		Description: "Directory holding index.html and static assets",
	},
	FlagStorage: {
		Name:        "storage",
		ViperKey:    "storage.provider",
		Description: "Session store backend (file, sqlite, postgres, redis)",
	},
	FlagStoragePath: {
		Name:        "storage-path",
		ViperKey:    "storage.path",
		Description: "Path to the JSON session file for the file backend",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite database for the sqlite backend",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string for the postgres backend",
	},
	FlagRedisAddr: {
		Name:        "redis-addr",
		ViperKey:    "storage.redis_addr",
		Description: "Redis address for the redis backend",
	},
	FlagInferenceProvider: {
		Name:        "inference-provider",
		ViperKey:    "inference.provider",
		Description: "Inference backend (openai, ollama)",
	},
	FlagInferenceURL: {
		Name:        "inference-url",
		ViperKey:    "inference.base_url",
		Description: "Base URL of the inference API",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "inference.model",
		Description: "Model name used for completions",
	},
	FlagMaxTokens: {
		Name:        "max-tokens",
		ViperKey:    "inference.max_tokens",
		Description: "Maximum completion tokens",
	},
	FlagRetrieval: {
		Name:        "retrieval",
		ViperKey:    "retrieval.provider",
		Description: "Retrieval backend (keyword, remote, none)",
	},
	FlagKnowledgeDir: {
		Name:        "knowledge-dir",
		Shorthand:   "k",
		ViperKey:    "retrieval.knowledge_dir",
		Description: "Directory of knowledge documents for keyword retrieval",
	},
	FlagRetrievalEndpoint: {
		Name:        "retrieval-endpoint",
		ViperKey:    "retrieval.endpoint",
		Description: "URL of the remote retrieval service",
	},
	FlagTopK: {
		Name:        "top-k",
		ViperKey:    "retrieval.top_k",
		Description: "Number of snippets retrieved per question",
	},
	FlagEvents: {
		Name:        "events",
		ViperKey:    "events.provider",
		Description: "Exchange event publisher (nop, kafka)",
	},
	FlagEventsBrokers: {
		Name:        "events-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma separated Kafka brokers",
	},
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "gentax API server URL",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
