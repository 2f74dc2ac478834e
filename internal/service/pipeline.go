package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"productrag/internal/domain"
	"productrag/internal/vectorstore"
)

// Apology is returned to the user in place of an answer whenever a turn fails.
const Apology = "I'm sorry, I couldn't find an answer to your question right now. Please try again in a moment."

// Pipeline runs extract → retrieve → compose → generate for one query.
type Pipeline struct {
	retriever *Retriever
	composer  *Composer
	generator *ResponseGenerator
	topK      int
	log       *log.Entry
}

// Options tunes a Pipeline. Zero values fall back to defaults.
type Options struct {
	TopK   int
	Logger *log.Entry
}

func NewPipeline(r *Retriever, c *Composer, g *ResponseGenerator, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = vectorstore.DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "pipeline")
	}
	return &Pipeline{retriever: r, composer: c, generator: g, topK: opts.TopK, log: opts.Logger}
}

// Run answers query and never returns an error: failures are logged and
// replaced by Apology.
func (p *Pipeline) Run(ctx context.Context, query string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			p.logFailure(p.log, query, fmt.Errorf("panic: %v", r))
			answer = Apology
		}
	}()
	text, err := p.Answer(ctx, query, nil)
	if err != nil {
		p.logFailure(p.log, query, err)
		return Apology
	}
	return text
}

// Answer runs every stage for query, composing the prompt with history, and
// returns the generated text. Context cancellation is checked between stages.
func (p *Pipeline) Answer(ctx context.Context, query string, history []domain.Turn) (string, error) {
	entry := p.log.WithField("query", query)

	c := ExtractConstraint(query)
	switch {
	case c.Warning == nil:
		entry.WithField("max_price", c.Constraint.MaxPrice).Debug("Price ceiling extracted")
	case errors.Is(c.Warning, ErrNoPriceMarkers):
		entry.Debug("No price ceiling in query")
	default:
		entry.WithError(c.Warning).Warn("Ignoring unreadable price ceiling")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	results, err := p.retriever.Retrieve(ctx, query, c.Constraint.MaxPrice, p.topK)
	if err != nil {
		return "", err
	}

	prompt := p.composer.Compose(query, results, history)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		var f *domain.Failure
		if errors.As(err, &f) && f.Query == "" {
			f.Query = query
		}
		return "", err
	}
	entry.WithField("results", len(results)).Info("Answered query")
	return text, nil
}

func (p *Pipeline) logFailure(entry *log.Entry, query string, err error) {
	fields := log.Fields{"query": query}
	var f *domain.Failure
	if errors.As(err, &f) {
		fields["stage"] = f.Stage
		fields["kind"] = f.Kind.String()
	}
	entry.WithFields(fields).WithError(err).Error("Query failed")
}
