package prompt

import (
	"context"
	"fmt"

	"styleframe/internal/domain"
)

// Source produces a transformation prompt for a single request.
type Source interface {
	GeneratePrompt(ctx context.Context, styleHint string) (*domain.Prompt, error)
}

// Generator routes between the generative and templated sources. The choice
// is the caller's: a failing LLM call surfaces as an error here, it never
// silently degrades to templating.
type Generator struct {
	llm      Source
	template Source
}

// NewGenerator wires the two sources. llm may be nil when no generative-text
// credential is configured.
func NewGenerator(llm, template Source) *Generator {
	return &Generator{llm: llm, template: template}
}

// GeneratePrompt returns a prompt from the requested source.
func (g *Generator) GeneratePrompt(ctx context.Context, useModel bool, styleHint string) (*domain.Prompt, error) {
	if useModel {
		if g.llm == nil {
			return nil, fmt.Errorf("prompt: generative source not configured: %w", domain.ErrMissingCredential)
		}
		return g.llm.GeneratePrompt(ctx, styleHint)
	}
	return g.template.GeneratePrompt(ctx, styleHint)
}
