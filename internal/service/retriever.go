package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"productrag/internal/domain"
	"productrag/internal/embedding"
	"productrag/internal/vectorstore"
)

// RetrieverConfig configures a Retriever.
type RetrieverConfig struct {
	Model         string
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
}

// Retriever embeds a query and ranks catalog products against it.
type Retriever struct {
	embedder      embedding.Embedder
	store         vectorstore.Storage
	model         string
	embedTimeout  time.Duration
	searchTimeout time.Duration
}

func NewRetriever(embedder embedding.Embedder, store vectorstore.Storage, cfg RetrieverConfig) *Retriever {
	return &Retriever{
		embedder:      embedder,
		store:         store,
		model:         cfg.Model,
		embedTimeout:  cfg.EmbedTimeout,
		searchTimeout: cfg.SearchTimeout,
	}
}

// Retrieve returns at most n products priced at or below maxPrice, ordered by
// descending cosine similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxPrice float64, n int) ([]domain.SearchResult, error) {
	if n <= 0 {
		n = vectorstore.DefaultTopK
	}
	vec, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	filter := domain.QueryConstraint{MaxPrice: maxPrice}
	sctx, cancel := withTimeout(ctx, r.searchTimeout)
	defer cancel()
	found, err := r.store.Search(sctx, vec, filter, n)
	if err != nil {
		return nil, domain.NewFailure(domain.KindStore, domain.StageSearch, query, err)
	}

	// Stores are trusted to filter and rank; the result contract is enforced here regardless.
	results := make([]domain.SearchResult, 0, len(found))
	for _, res := range found {
		if filter.Admits(res.Product.Price) {
			results = append(results, res)
		}
	}
	results = vectorstore.Rank(results, n)

	log.WithFields(log.Fields{
		"query":     query,
		"max_price": maxPrice,
		"results":   len(results),
	}).Debug("Retrieved products")
	return results, nil
}

func (r *Retriever) embed(ctx context.Context, query string) ([]float32, error) {
	ectx, cancel := withTimeout(ctx, r.embedTimeout)
	defer cancel()
	vec, err := r.embedder.Embed(ectx, r.model, query)
	if err != nil {
		return nil, domain.NewFailure(domain.KindEmbedding, domain.StageEmbed, query, err)
	}
	if len(vec) == 0 {
		return nil, domain.NewFailure(domain.KindEmbedding, domain.StageEmbed, query, errors.New("empty embedding"))
	}
	return vec, nil
}

// withTimeout applies d to ctx when positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
