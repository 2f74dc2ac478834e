package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file settings.
const EnvPrefix = "RAG"

// OllamaConfig holds connection details for a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" split_words:"true"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url" split_words:"true"`
	APIKeyEnv string `yaml:"api_key_env" split_words:"true"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string       `yaml:"type" split_words:"true"`
	Model       string       `yaml:"model" split_words:"true"`
	TimeoutSecs int          `yaml:"timeout_secs" split_words:"true"`
	MaxRetries  int          `yaml:"max_retries" split_words:"true"`
	CacheSize   int          `yaml:"cache_size" split_words:"true"`
	Ollama      OllamaConfig `yaml:"ollama" envconfig:"OLLAMA"`
	OpenAI      OpenAIConfig `yaml:"openai" envconfig:"OPENAI"`
}

// GeneratorConfig selects and configures the text generation implementation.
type GeneratorConfig struct {
	Type        string       `yaml:"type" split_words:"true"`
	Model       string       `yaml:"model" split_words:"true"`
	TimeoutSecs int          `yaml:"timeout_secs" split_words:"true"`
	MaxRetries  int          `yaml:"max_retries" split_words:"true"`
	MaxTokens   int          `yaml:"max_tokens" split_words:"true"`
	Temperature float32      `yaml:"temperature" split_words:"true"`
	Ollama      OllamaConfig `yaml:"ollama" envconfig:"OLLAMA"`
	OpenAI      OpenAIConfig `yaml:"openai" envconfig:"OPENAI"`
}

// PostgresConfig contains connection details for PostgreSQL with pgvector.
type PostgresConfig struct {
	Host     string `yaml:"host" split_words:"true"`
	Port     int    `yaml:"port" split_words:"true"`
	Database string `yaml:"database" split_words:"true"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	SSLMode  string `yaml:"sslmode" split_words:"true"`
	Table    string `yaml:"table" split_words:"true"`
	MaxConns int    `yaml:"max_conns" split_words:"true"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" split_words:"true"`
	APIKey      string `yaml:"api_key" split_words:"true"`
	Collection  string `yaml:"collection" split_words:"true"`
	TimeoutSecs int    `yaml:"timeout_secs" split_words:"true"`
}

// SQLiteConfig points at a local database file.
type SQLiteConfig struct {
	Path string `yaml:"path" split_words:"true"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type        string         `yaml:"type" split_words:"true"`
	TimeoutSecs int            `yaml:"timeout_secs" split_words:"true"`
	Postgres    PostgresConfig `yaml:"postgres" envconfig:"POSTGRES"`
	Qdrant      QdrantConfig   `yaml:"qdrant" envconfig:"QDRANT"`
	SQLite      SQLiteConfig   `yaml:"sqlite" envconfig:"SQLITE"`
}

// RetrievalConfig tunes retrieval and prompt assembly.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k" split_words:"true"`
	DescriptionLimit int `yaml:"description_limit" split_words:"true"`
	HistoryTurns     int `yaml:"history_turns" split_words:"true"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder" envconfig:"EMBEDDER"`
	Generator   GeneratorConfig   `yaml:"generator" envconfig:"GENERATOR"`
	VectorStore VectorStoreConfig `yaml:"vector_store" envconfig:"STORE"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" envconfig:"RETRIEVAL"`
	Log         LogConfig         `yaml:"log" envconfig:"LOG"`
	DataPath    string            `yaml:"data_path" split_words:"true"`
}

// ConfigError reports a missing or invalid setting. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied on top of the file in both cases.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Field: path, Reason: err.Error()}
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the settings required before any query is accepted.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "ollama", "openai", "tfidf":
	default:
		return &ConfigError{Field: "embedder.type", Reason: fmt.Sprintf("unknown embedder %q", c.Embedder.Type)}
	}
	if c.Embedder.Model == "" {
		return &ConfigError{Field: "embedder.model", Reason: "required"}
	}
	switch c.Generator.Type {
	case "ollama", "openai":
	default:
		return &ConfigError{Field: "generator.type", Reason: fmt.Sprintf("unknown generator %q", c.Generator.Type)}
	}
	if c.Generator.Model == "" {
		return &ConfigError{Field: "generator.model", Reason: "required"}
	}
	switch c.VectorStore.Type {
	case "postgres":
		pg := c.VectorStore.Postgres
		if pg.Host == "" {
			return &ConfigError{Field: "vector_store.postgres.host", Reason: "required"}
		}
		if pg.Port <= 0 || pg.Port > 65535 {
			return &ConfigError{Field: "vector_store.postgres.port", Reason: fmt.Sprintf("invalid port %d", pg.Port)}
		}
		if pg.Database == "" {
			return &ConfigError{Field: "vector_store.postgres.database", Reason: "required"}
		}
		if pg.User == "" {
			return &ConfigError{Field: "vector_store.postgres.user", Reason: "required"}
		}
	case "qdrant":
		if c.VectorStore.Qdrant.URL == "" {
			return &ConfigError{Field: "vector_store.qdrant.url", Reason: "required"}
		}
	case "sqlite":
		if c.VectorStore.SQLite.Path == "" {
			return &ConfigError{Field: "vector_store.sqlite.path", Reason: "required"}
		}
	case "memory":
	default:
		return &ConfigError{Field: "vector_store.type", Reason: fmt.Sprintf("unknown vector store %q", c.VectorStore.Type)}
	}
	if c.Retrieval.TopK <= 0 {
		return &ConfigError{Field: "retrieval.top_k", Reason: "must be positive"}
	}
	if c.Retrieval.HistoryTurns <= 0 {
		return &ConfigError{Field: "retrieval.history_turns", Reason: "must be positive"}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{
			Type:        "ollama",
			Model:       "nomic-embed-text",
			TimeoutSecs: 30,
			MaxRetries:  2,
			CacheSize:   256,
		},
		Generator: GeneratorConfig{
			Type:        "ollama",
			Model:       "gemma2:2b",
			TimeoutSecs: 120,
			MaxRetries:  2,
		},
		VectorStore: VectorStoreConfig{
			Type:        "postgres",
			TimeoutSecs: 10,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "postgres",
				User:     "postgres",
				Password: "postgres",
				Table:    "products",
			},
		},
		Retrieval: RetrievalConfig{TopK: 5, DescriptionLimit: 200, HistoryTurns: 10},
		Log:       LogConfig{Level: "info", Format: "text"},
		DataPath:  "data/seed_data_no_embeds.json",
	}
}

// applyEnv overlays RAG_* variables, e.g. RAG_EMBEDDER_MODEL or
// RAG_STORE_POSTGRES_PASSWORD. Leaf fields must not carry envconfig tags:
// a tagged field also matches the bare name (USER, PATH).
// LOG_LEVEL is honored as a shorthand for RAG_LOG_LEVEL.
func applyEnv(cfg *AppConfig) error {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" && os.Getenv(EnvPrefix+"_LOG_LEVEL") == "" {
		cfg.Log.Level = lvl
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return &ConfigError{Field: "environment", Reason: err.Error()}
	}
	return nil
}

func applyConfigDefaults(cfg *AppConfig) {
	cfg.Embedder.Type = strings.ToLower(cfg.Embedder.Type)
	cfg.Generator.Type = strings.ToLower(cfg.Generator.Type)
	cfg.VectorStore.Type = strings.ToLower(cfg.VectorStore.Type)
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.Generator.Type == "openai" && cfg.Generator.OpenAI.APIKeyEnv == "" {
		cfg.Generator.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Ollama.BaseURL == "" {
		cfg.Embedder.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Generator.Ollama.BaseURL == "" {
		cfg.Generator.Ollama.BaseURL = cfg.Embedder.Ollama.BaseURL
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 120
	}
	if cfg.VectorStore.TimeoutSecs == 0 {
		cfg.VectorStore.TimeoutSecs = 10
	}
	if cfg.Retrieval.DescriptionLimit == 0 {
		cfg.Retrieval.DescriptionLimit = 200
	}
	if cfg.VectorStore.Qdrant.Collection == "" {
		cfg.VectorStore.Qdrant.Collection = "products"
	}
}
