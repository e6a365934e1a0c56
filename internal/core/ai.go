package core

import "context"

// LLMProvider turns a system and user prompt into raw generated text.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
