package image

import (
	"context"

	"styleframe/internal/domain"
	"styleframe/internal/providers/genai"
)

// GeminiTransformer adapts the Gemini text-to-image client as the fallback
// provider. Gemini renders from the prompt alone: the source frame, seed and
// strength in the request are accepted and ignored, so repeated calls are not
// reproducible. Best effort by contract.
type GeminiTransformer struct {
	client *genai.Client
}

func NewGeminiTransformer(client *genai.Client) *GeminiTransformer {
	return &GeminiTransformer{client: client}
}

func (t *GeminiTransformer) Name() string { return "gemini" }

func (t *GeminiTransformer) Transform(ctx context.Context, req TransformRequest) (*domain.Artifact, error) {
	asset, err := t.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:    promptText(req.Prompt),
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &domain.Artifact{
		Kind:     domain.ArtifactKindInline,
		URL:      asset.URL,
		MIME:     asset.Format,
		Data:     asset.Data,
		Provider: t.Name(),
		Metadata: map[string]any{"model": t.client.Model()},
	}, nil
}

var _ Transformer = (*GeminiTransformer)(nil)
