package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embedder.Type)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, "gemma2:2b", cfg.Generator.Model)
	assert.Equal(t, "postgres", cfg.VectorStore.Type)
	assert.Equal(t, 5432, cfg.VectorStore.Postgres.Port)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 10, cfg.Retrieval.HistoryTurns)
	assert.Equal(t, 200, cfg.Retrieval.DescriptionLimit)
	assert.Equal(t, "http://localhost:11434", cfg.Generator.Ollama.BaseURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
embedder:
  type: OpenAI
  model: text-embedding-3-small
vector_store:
  type: qdrant
  qdrant:
    url: http://qdrant:6333
retrieval:
  top_k: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
	assert.Equal(t, "products", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	// untouched sections keep their defaults
	assert.Equal(t, "gemma2:2b", cfg.Generator.Model)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RAG_EMBEDDER_MODEL", "mxbai-embed-large")
	t.Setenv("RAG_GENERATOR_MODEL", "llama3.2")
	t.Setenv("RAG_STORE_POSTGRES_HOST", "db.internal")
	t.Setenv("RAG_STORE_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("RAG_RETRIEVAL_TOP_K", "7")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("USER", "someone-else")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedder.Model)
	assert.Equal(t, "llama3.2", cfg.Generator.Model)
	assert.Equal(t, "db.internal", cfg.VectorStore.Postgres.Host)
	assert.Equal(t, "s3cret", cfg.VectorStore.Postgres.Password)
	assert.Equal(t, "postgres", cfg.VectorStore.Postgres.User)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("RAG_RETRIEVAL_TOP_K", "many")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "environment", cerr.Field)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "embedder: [unterminated")
	_, err := Load(path)
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "word2vec" }, "embedder.type"},
		{"missing embed model", func(c *AppConfig) { c.Embedder.Model = "" }, "embedder.model"},
		{"unknown generator", func(c *AppConfig) { c.Generator.Type = "gpt" }, "generator.type"},
		{"missing gen model", func(c *AppConfig) { c.Generator.Model = "" }, "generator.model"},
		{"missing host", func(c *AppConfig) { c.VectorStore.Postgres.Host = "" }, "vector_store.postgres.host"},
		{"bad port", func(c *AppConfig) { c.VectorStore.Postgres.Port = 0 }, "vector_store.postgres.port"},
		{"missing qdrant url", func(c *AppConfig) { c.VectorStore.Type = "qdrant" }, "vector_store.qdrant.url"},
		{"missing sqlite path", func(c *AppConfig) { c.VectorStore.Type = "sqlite" }, "vector_store.sqlite.path"},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Type = "redis" }, "vector_store.type"},
		{"zero top k", func(c *AppConfig) { c.Retrieval.TopK = 0 }, "retrieval.top_k"},
		{"zero history", func(c *AppConfig) { c.Retrieval.HistoryTurns = 0 }, "retrieval.history_turns"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "expected ConfigError, got %v", err)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.VectorStore.Type = "sqlite"
	cfg.VectorStore.SQLite.Path = "catalog.db"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loaded.VectorStore.Type)
	assert.Equal(t, "catalog.db", loaded.VectorStore.SQLite.Path)
}
