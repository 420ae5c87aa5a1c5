package openai

import (
	"context"

	"github.com/anish1206/green-tech/internal/domain/ai"
)

// Disabled is the Completer used when no provider is configured.
type Disabled struct{}

func (Disabled) Complete(context.Context, string, int) (string, error) {
	return "", ai.ErrDisabled
}
