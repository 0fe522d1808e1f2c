package image

import (
	"context"

	"styleframe/internal/domain"
)

// TransformRequest describes a normalized request passed to any transformation
// provider: the source frame, the prompt, and optional reproducibility knobs.
type TransformRequest struct {
	Image     []byte
	MIME      string
	Prompt    *domain.Prompt
	Strength  float64
	Seed      int
	RequestID string
}

// Transformer is the contract implemented by all transformation providers.
// Adapters own their own request/response translation; callers never
// special-case a provider beyond choosing its place in the chain.
type Transformer interface {
	Name() string
	Transform(ctx context.Context, req TransformRequest) (*domain.Artifact, error)
}
