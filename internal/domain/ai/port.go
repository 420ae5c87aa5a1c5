package ai

import "context"

// Completer returns a text completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
