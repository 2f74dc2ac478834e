package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"productrag/internal/transport"
)

// Client is an OpenAI-compatible embeddings client implementing embedding.Embedder.
type Client struct {
	http  *transport.Client
	model string
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http: transport.New(transport.Config{
			BaseURL:    cfg.BaseURL,
			Headers:    map[string]string{"Authorization": "Bearer " + key},
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}),
		model: cfg.Model,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Embed returns an embedding vector for the given text. An empty model falls
// back to the configured one.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if model == "" {
		model = c.model
	}
	body := struct {
		Input string `json:"input"`
		Model string `json:"model"`
	}{Input: text, Model: model}

	// OpenAI answers with data[].embedding; Ollama's compatible proxy with a bare embedding.
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Embedding []float32 `json:"embedding"`
	}
	if err := c.http.PostJSON(ctx, "/embeddings", body, &out); err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	return nil, errors.New("openai embeddings: no embedding returned")
}
