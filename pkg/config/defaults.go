package config

const (
	defaultListen    = ":8000"
	defaultStaticDir = "static"

	defaultStorageProvider = "file"
	defaultStoragePath     = "sessions.json"
	defaultSQLitePath      = "gentax.sqlite"
	defaultRedisAddr       = "localhost:6379"
	defaultRedisPrefix     = "gentax:sess:"

	defaultInferenceProvider = "openai"
	defaultInferenceBaseURL  = "https://api.groq.com/openai/v1"
	defaultInferenceModel    = "llama-3.1-8b-instant"
	defaultTemperature       = 0.2
	defaultMaxTokens         = 800
	defaultInferenceTimeout  = "30s"

	defaultRetrievalProvider = "keyword"
	defaultKnowledgeDir      = "knowledge"
	defaultTopK              = 5
	defaultRetrievalTimeout  = "5s"
	defaultCacheSize         = 256
	defaultCacheTTL          = "5m"

	defaultTokenBudget = 6000

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "gentax.exchanges"

	defaultClientAPITarget = "http://localhost:8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:    defaultListen,
			StaticDir: defaultStaticDir,
		},
		Storage: StorageConfig{
			Provider:    defaultStorageProvider,
			Path:        defaultStoragePath,
			SQLitePath:  defaultSQLitePath,
			RedisAddr:   defaultRedisAddr,
			RedisPrefix: defaultRedisPrefix,
		},
		Inference: InferenceConfig{
			Provider:    defaultInferenceProvider,
			BaseURL:     defaultInferenceBaseURL,
			Model:       defaultInferenceModel,
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
			Timeout:     defaultInferenceTimeout,
		},
		Retrieval: RetrievalConfig{
			Provider:     defaultRetrievalProvider,
			KnowledgeDir: defaultKnowledgeDir,
			TopK:         defaultTopK,
			Timeout:      defaultRetrievalTimeout,
			Watch:        true,
			CacheSize:    defaultCacheSize,
			CacheTTL:     defaultCacheTTL,
		},
		Conversation: ConversationConfig{
			TokenBudget: defaultTokenBudget,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
