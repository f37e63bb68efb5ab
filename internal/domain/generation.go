package domain

import "context"

// Generator is the answer generation contract. Instructions and context are
// assembled by the caller; the provider is expected to answer only from the
// supplied context.
type Generator interface {
	Generate(ctx context.Context, instructions, contextBlock, question string) (GenerationResult, error)
}

// GenerationResult carries the generated text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
