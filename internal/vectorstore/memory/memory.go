package memory

import (
	"context"
	"errors"
	"sync"

	"productrag/internal/domain"
	"productrag/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	products  []domain.Product
	nextID    int64
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.products = nil
	return nil
}

// Upsert stores products, assigning sequential ids to those without one.
func (s *Storage) Upsert(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if len(p.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, p := range products {
		if p.ID == 0 {
			s.nextID++
			p.ID = s.nextID
		} else if p.ID > s.nextID {
			s.nextID = p.ID
		}
		s.products = append(s.products, p)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, filter domain.QueryConstraint, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.SearchResult, 0, len(s.products))
	for _, p := range s.products {
		if !filter.Admits(p.Price) {
			continue
		}
		results = append(results, domain.SearchResult{Product: p, Similarity: vectorstore.Cosine(p.Embedding, vector)})
	}
	return vectorstore.Rank(results, topK), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = nil
	s.nextID = 0
	return nil
}

func (s *Storage) Close() error { return nil }
