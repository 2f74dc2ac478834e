package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"productrag/internal/domain"
	"productrag/internal/embedding"
	"productrag/internal/vectorstore"
)

// Ingestor embeds catalog products and loads them into a vector store.
type Ingestor struct {
	embedder     embedding.Embedder
	store        vectorstore.Storage
	model        string
	embedTimeout time.Duration
	reset        bool
}

// IngestConfig configures an Ingestor. Reset clears the store before loading.
type IngestConfig struct {
	Model        string
	EmbedTimeout time.Duration
	Reset        bool
}

func NewIngestor(embedder embedding.Embedder, store vectorstore.Storage, cfg IngestConfig) *Ingestor {
	return &Ingestor{
		embedder:     embedder,
		store:        store,
		model:        cfg.Model,
		embedTimeout: cfg.EmbedTimeout,
		reset:        cfg.Reset,
	}
}

// Setup embeds each product description, prepares the store for the
// embedding dimension and writes all products. It returns the number stored.
func (i *Ingestor) Setup(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, errors.New("no products to load")
	}
	items := make([]domain.Product, len(products))
	dim := 0
	for n, p := range products {
		ectx, cancel := withTimeout(ctx, i.embedTimeout)
		vec, err := i.embedder.Embed(ectx, i.model, p.Description)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("embed product %q: %w", p.Name, err)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) == 0 || len(vec) != dim {
			return 0, fmt.Errorf("embed product %q: got %d dimensions, want %d", p.Name, len(vec), dim)
		}
		p.Embedding = vec
		items[n] = p
		log.WithFields(log.Fields{"product": p.Name, "index": n + 1, "total": len(products)}).Debug("Embedded product")
	}

	if i.reset {
		if err := i.store.Clear(ctx); err != nil {
			return 0, fmt.Errorf("clear store: %w", err)
		}
	}
	if err := i.store.Init(ctx, dim); err != nil {
		return 0, fmt.Errorf("init store: %w", err)
	}
	if err := i.store.Upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("store products: %w", err)
	}
	log.WithFields(log.Fields{"products": len(items), "dimension": dim}).Info("Catalog loaded")
	return len(items), nil
}
