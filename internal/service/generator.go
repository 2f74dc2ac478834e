package service

import (
	"context"
	"time"

	"productrag/internal/domain"
	"productrag/internal/generation"
)

// ResponseGenerator sends a composed prompt to the generation provider and
// returns its text unmodified.
type ResponseGenerator struct {
	gen     generation.Generator
	model   string
	timeout time.Duration
}

func NewResponseGenerator(gen generation.Generator, model string, timeout time.Duration) *ResponseGenerator {
	return &ResponseGenerator{gen: gen, model: model, timeout: timeout}
}

// Generate returns the provider's text for prompt. Failures are reported as
// *domain.Failure without a query; the pipeline fills it in.
func (g *ResponseGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	gctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	text, err := g.gen.Generate(gctx, g.model, prompt)
	if err != nil {
		return "", domain.NewFailure(domain.KindGeneration, domain.StageGenerate, "", err)
	}
	return text, nil
}
