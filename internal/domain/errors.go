package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies failures raised by the retrieval and generation stages.
type Kind int

const (
	KindEmbedding Kind = iota + 1
	KindStore
	KindGeneration
	KindTimeout
)

var (
	ErrEmbedding  = errors.New("embedding failure")
	ErrStore      = errors.New("store failure")
	ErrGeneration = errors.New("generation failure")
	ErrTimeout    = errors.New("timeout")
)

func (k Kind) sentinel() error {
	switch k {
	case KindEmbedding:
		return ErrEmbedding
	case KindStore:
		return ErrStore
	case KindGeneration:
		return ErrGeneration
	case KindTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown failure"
}

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StageEmbed    Stage = "embed"
	StageSearch   Stage = "search"
	StageGenerate Stage = "generate"
)

// Failure wraps a provider or store error with the stage and query it belongs to.
type Failure struct {
	Kind  Kind
	Stage Stage
	Query string
	Err   error
}

// NewFailure builds a Failure of the given kind. Errors caused by an expired
// deadline are reported as KindTimeout regardless of the stage.
func NewFailure(kind Kind, stage Stage, query string, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Failure{Kind: kind, Stage: stage, Query: query, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s during %s for query %q: %v", f.Kind, f.Stage, f.Query, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches the sentinel of the failure kind, so callers can use
// errors.Is(err, domain.ErrStore).
func (f *Failure) Is(target error) bool {
	s := f.Kind.sentinel()
	return s != nil && target == s
}
