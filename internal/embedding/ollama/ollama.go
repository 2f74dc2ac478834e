// Package ollama provides an embedding.Embedder backed by a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productrag/internal/transport"
)

// Config configures the Ollama embeddings client.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client calls Ollama's /api/embeddings endpoint.
type Client struct {
	http  *transport.Client
	model string
}

// NewClient creates an Ollama embeddings client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		http: transport.New(transport.Config{
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}),
		model: cfg.Model,
	}
}

func (c *Client) Name() string { return "ollama" }

// Embed generates an embedding for text with model, or the configured model
// when model is empty.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if model == "" {
		model = c.model
	}
	req := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: model, Prompt: text}
	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.http.PostJSON(ctx, "/api/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("ollama embeddings: empty embedding")
	}
	return resp.Embedding, nil
}
