package llm

import (
	"context"
)

// Client defines the interface to a text-generation backend. Implementations
// are expected to return raw response text; sanitization and JSON parsing
// happen in the classifier so a single contract covers every provider.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
