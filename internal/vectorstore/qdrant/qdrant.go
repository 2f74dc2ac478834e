package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"productrag/internal/domain"
	"productrag/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	nextID     int64
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "products"
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 OK if the collection exists with the same schema.
	if err := s.send(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return err
	}
	// Range filters on price are served from a payload index.
	index := map[string]any{"field_name": "price", "field_schema": "float"}
	return s.send(ctx, http.MethodPut, s.collectionURL("/index?wait=true"), index, nil)
}

func (s *Storage) Upsert(ctx context.Context, products []domain.Product) error {
	points := make([]map[string]any, len(products))
	for i, p := range products {
		if s.dimension > 0 && len(p.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		id := p.ID
		if id == 0 {
			s.nextID++
			id = s.nextID
		} else if id > s.nextID {
			s.nextID = id
		}
		points[i] = map[string]any{
			"id":     id,
			"vector": p.Embedding,
			"payload": map[string]any{
				"type":        p.Type,
				"brand":       p.Brand,
				"name":        p.Name,
				"description": p.Description,
				"price":       p.Price,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.send(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

type searchResponse struct {
	Result []struct {
		ID      int64          `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Search(ctx context.Context, vector []float32, filter domain.QueryConstraint, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	// +Inf is not representable in JSON; an unbounded constraint simply has no filter.
	if filter.Bounded() {
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "price", "range": map[string]any{"lte": filter.MaxPrice}},
			},
		}
	}
	var resp searchResponse
	if err := s.send(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		p := domain.Product{ID: r.ID}
		if v, ok := r.Payload["type"].(string); ok {
			p.Type = v
		}
		if v, ok := r.Payload["brand"].(string); ok {
			p.Brand = v
		}
		if v, ok := r.Payload["name"].(string); ok {
			p.Name = v
		}
		if v, ok := r.Payload["description"].(string); ok {
			p.Description = v
		}
		if v, ok := r.Payload["price"].(float64); ok {
			p.Price = v
		}
		results = append(results, domain.SearchResult{Product: p, Similarity: r.Score})
	}
	return results, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	// Best-effort: drop collection
	_ = s.send(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	s.nextID = 0
	return nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) send(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant marshal: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
