package service

import (
	"context"
	"errors"
	"strings"

	"productrag/internal/domain"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   []string
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(ctx context.Context, model, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
	hook    func(ctx context.Context)
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.hook != nil {
		f.hook(ctx)
	}
	if f.err != nil {
		return "", f.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.reply, nil
}

// fakeStore returns canned results and records calls.
type fakeStore struct {
	results   []domain.SearchResult
	searchErr error
	initDim   int
	upserted  []domain.Product
	cleared   bool
}

func (f *fakeStore) Init(_ context.Context, dimension int) error {
	f.initDim = dimension
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, products []domain.Product) error {
	f.upserted = append(f.upserted, products...)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, _ []float32, _ domain.QueryConstraint, _ int) ([]domain.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.SearchResult, len(f.results))
	copy(out, f.results)
	return out, nil
}

func (f *fakeStore) Clear(context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeStore) Close() error { return nil }

var errBoom = errors.New("boom")

func catalogResults() []domain.SearchResult {
	return []domain.SearchResult{
		{Product: domain.Product{ID: 1, Name: "Trail Runner", Description: "Light trail shoe", Price: 89.99}, Similarity: 0.71},
		{Product: domain.Product{ID: 2, Name: "Summit Boot", Description: "Waterproof leather boot", Price: 249}, Similarity: 0.93},
		{Product: domain.Product{ID: 3, Name: "Camp Sandal", Description: "Open sandal", Price: 39.5}, Similarity: 0.42},
		{Product: domain.Product{ID: 4, Name: "Ridge Hiker", Description: strings.Repeat("cushioned ", 40), Price: 149.5}, Similarity: 0.88},
		{Product: domain.Product{ID: 5, Name: "Alpine Mid", Description: "Mid-cut hiker", Price: 179}, Similarity: 0.88},
		{Product: domain.Product{ID: 6, Name: "Scree Gaiter", Description: "Gaiter", Price: 29}, Similarity: 0.15},
		{Product: domain.Product{ID: 7, Name: "Canyon Approach", Description: "Approach shoe", Price: 129}, Similarity: 0.66},
	}
}
