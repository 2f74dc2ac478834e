package generation

import "context"

// Generator turns a prompt into generated text using the named model.
type Generator interface {
	Name() string
	Generate(ctx context.Context, model, prompt string) (string, error)
}
