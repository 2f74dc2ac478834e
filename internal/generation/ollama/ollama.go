// Package ollama provides a generation.Generator backed by Ollama's
// non-streaming /api/generate endpoint.
package ollama

import (
	"context"
	"fmt"
	"time"

	"productrag/internal/transport"
)

// Config configures the Ollama generation client.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements generation.Generator.
type Client struct {
	http  *transport.Client
	model string
}

// NewClient creates an Ollama generation client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "gemma2:2b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
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

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate returns the model's response text unmodified.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.model
	}
	var resp generateResponse
	if err := c.http.PostJSON(ctx, "/api/generate", generateRequest{Model: model, Prompt: prompt}, &resp); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return resp.Response, nil
}
