package image

import (
	"context"

	"styleframe/internal/domain"
	"styleframe/internal/providers/qwen"
)

// QwenTransformer adapts the DashScope image-edit client. It is the only
// provider that conditions on the source frame, so it sits first in the
// default chain.
type QwenTransformer struct {
	client *qwen.Client
}

func NewQwenTransformer(client *qwen.Client) *QwenTransformer {
	return &QwenTransformer{client: client}
}

func (t *QwenTransformer) Name() string { return "qwen" }

func (t *QwenTransformer) Transform(ctx context.Context, req TransformRequest) (*domain.Artifact, error) {
	asset, err := t.client.EditImage(ctx, qwen.EditRequest{
		Prompt:    promptText(req.Prompt),
		Image:     req.Image,
		ImageMIME: req.MIME,
		Strength:  req.Strength,
		Seed:      req.Seed,
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
		Metadata: map[string]any{
			"model":  t.client.Model(),
			"width":  asset.Width,
			"height": asset.Height,
		},
	}, nil
}

func promptText(p *domain.Prompt) string {
	if p == nil {
		return ""
	}
	return p.Text
}

var _ Transformer = (*QwenTransformer)(nil)
