package image

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
)

// Chain tries each configured transformer in order and returns the first
// successful artifact. Failures along the way are logged and swallowed;
// only when every provider has failed does the chain return an error, and
// that error carries the last provider's failure so callers see the most
// recent upstream detail.
type Chain struct {
	transformers []Transformer
	logger       *infra.Logger
}

// NewChain builds a fallback chain over the given transformers in priority
// order. At least one transformer is required.
func NewChain(logger *infra.Logger, transformers ...Transformer) (*Chain, error) {
	if len(transformers) == 0 {
		return nil, fmt.Errorf("image: %w", domain.ErrNoProviders)
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Chain{transformers: transformers, logger: logger}, nil
}

// Names returns the provider names in chain order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.transformers))
	for _, t := range c.transformers {
		names = append(names, t.Name())
	}
	return names
}

func (c *Chain) Transform(ctx context.Context, req TransformRequest) (*domain.Artifact, error) {
	var (
		lastErr  error
		lastName string
	)
	for _, t := range c.transformers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("image: chain aborted: %w", err)
		}
		artifact, err := t.Transform(ctx, req)
		if err == nil && (artifact == nil || (len(artifact.Data) == 0 && artifact.URL == "")) {
			err = fmt.Errorf("provider returned empty artifact")
		}
		if err == nil {
			if artifact.Provider == "" {
				artifact.Provider = t.Name()
			}
			return artifact, nil
		}
		c.logger.Warn().
			Err(err).
			Str("provider", t.Name()).
			Str("request_id", req.RequestID).
			Msg("image: provider failed, trying next")
		lastErr = err
		lastName = t.Name()
	}
	return nil, fmt.Errorf("image: all %d providers failed, last %s: %w", len(c.transformers), lastName, lastErr)
}
