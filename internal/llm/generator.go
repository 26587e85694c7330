package llm

import (
	"context"
	"fmt"
	"strings"
)

// Generator produces the final answer text.
type Generator struct {
	client Completer
}

// NewGenerator returns a generator using client.
func NewGenerator(client Completer) *Generator {
	return &Generator{client: client}
}

// Generate returns the model's answer to user under the system instruction.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	text, err := g.client.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
