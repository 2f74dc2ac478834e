package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Embedder converts free text into a numeric vector representation using the
// named model.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// Cached wraps an Embedder with a bounded LRU cache keyed by model and text.
type Cached struct {
	inner Embedder
	cache *lru.Cache
}

// NewCached returns a caching Embedder holding at most size vectors.
func NewCached(inner Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Embed(ctx context.Context, model, text string) ([]float32, error) {
	key := cacheKey(model, text)
	if v, ok := c.cache.Get(key); ok {
		return v.([]float32), nil
	}
	vec, err := c.inner.Embed(ctx, model, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + ":" + text))
	return hex.EncodeToString(h[:16])
}
