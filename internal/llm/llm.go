// Package llm defines the text-in/text-out contract every language model
// backend satisfies.
package llm

import "context"

// Prompt is a single system/user message pair.
type Prompt struct {
	System string
	User   string
}

// Model generates a completion for a prompt. Implementations hold no
// per-call state and are safe to share between stages.
type Model interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Name() string
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(ctx context.Context, prompt Prompt) (string, error)

// Generate calls f.
func (f ModelFunc) Generate(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// Name reports a fixed identifier for function-backed models.
func (f ModelFunc) Name() string {
	return "func"
}
