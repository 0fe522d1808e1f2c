package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
	"styleframe/internal/providers/image"
	"styleframe/internal/storage"
)

// PromptGenerator produces the transformation prompt for one request.
type PromptGenerator interface {
	GeneratePrompt(ctx context.Context, useModel bool, styleHint string) (*domain.Prompt, error)
}

// Transformer runs the provider fallback chain for one request.
type Transformer interface {
	Transform(ctx context.Context, req image.TransformRequest) (*domain.Artifact, error)
}

// AssetStore is the durable store the pipeline publishes artifacts to.
type AssetStore interface {
	RequestUpload(ctx context.Context, name string) (*domain.UploadTarget, error)
	PutBytes(ctx context.Context, uploadURL string, data []byte, mime string) error
}

// PipelineOptions configures a transformation pipeline.
type PipelineOptions struct {
	Prompts    PromptGenerator
	Chain      Transformer
	Store      AssetStore
	Poller     *Poller
	PollPolicy PollPolicy
	FileStore  *storage.FileStore
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Pipeline runs one transformation end to end: acquire the source frame,
// produce a prompt, run the provider chain, then publish the result to
// durable storage. Publishing is the only non-fatal stage.
type Pipeline struct {
	prompts    PromptGenerator
	chain      Transformer
	store      AssetStore
	poller     *Poller
	pollPolicy PollPolicy
	fileStore  *storage.FileStore
	httpClient *http.Client
	logger     *infra.Logger
}

// RunRequest captures one transformation request. Exactly one of ImageData,
// ImageB64 or SourceURL must identify the source frame. A non-empty Prompt
// skips prompt generation entirely.
type RunRequest struct {
	ImageData []byte
	ImageB64  string
	SourceURL string
	MIME      string

	Prompt         string
	StyleHint      string
	GenerativeText bool
	Strength       float64
	Seed           int
	RequestID      string
}

// RunResult is the pipeline's success shape. Degraded marks the inline
// fallback path: the transform succeeded but publishing did not, and the
// artifact carries the bytes instead of a durable URL.
type RunResult struct {
	Prompt   *domain.Prompt
	Artifact *domain.Artifact
	Provider string
	Degraded bool
}

// Reference returns the artifact locator the caller should hand out.
func (r *RunResult) Reference() string {
	if r == nil || r.Artifact == nil {
		return ""
	}
	return r.Artifact.Reference()
}

// NewPipeline wires the pipeline stages.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Prompts == nil {
		return nil, fmt.Errorf("media: prompt generator is required")
	}
	if opts.Chain == nil {
		return nil, fmt.Errorf("media: transformer chain is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	policy := opts.PollPolicy
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 20
	}
	if policy.Interval <= 0 {
		policy.Interval = 2 * time.Second
	}
	return &Pipeline{
		prompts:    opts.Prompts,
		chain:      opts.Chain,
		store:      opts.Store,
		poller:     opts.Poller,
		pollPolicy: policy,
		fileStore:  opts.FileStore,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithChain returns a copy of the pipeline running a different provider
// chain. Used for per-job provider orderings.
func (p *Pipeline) WithChain(chain Transformer) *Pipeline {
	clone := *p
	clone.chain = chain
	return &clone
}

// Run executes AcquireBytes, GeneratePrompt, Transform and PersistAndPublish
// in strict sequence. Acquire, prompt and transform failures are fatal;
// publish failures degrade to the inline artifact and still return success.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	data, mime, err := p.acquireBytes(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("media: acquire source frame: %w", err)
	}

	prompt, err := p.resolvePrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	artifact, err := p.chain.Transform(ctx, image.TransformRequest{
		Image:     data,
		MIME:      mime,
		Prompt:    prompt,
		Strength:  req.Strength,
		Seed:      req.Seed,
		RequestID: requestID,
	})
	if err != nil {
		return nil, err
	}

	published, err := p.publish(ctx, requestID, artifact)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("request_id", requestID).
			Str("provider", artifact.Provider).
			Msg("media: publish failed, returning inline artifact")
		p.saveFallback(ctx, requestID, artifact)
		return &RunResult{Prompt: prompt, Artifact: artifact, Provider: artifact.Provider, Degraded: true}, nil
	}
	return &RunResult{Prompt: prompt, Artifact: published, Provider: artifact.Provider}, nil
}

func (p *Pipeline) acquireBytes(ctx context.Context, req RunRequest) ([]byte, string, error) {
	if len(req.ImageData) > 0 {
		return req.ImageData, req.MIME, nil
	}
	if encoded := strings.TrimSpace(req.ImageB64); encoded != "" {
		return decodeInline(encoded, req.MIME)
	}
	if ref := strings.TrimSpace(req.SourceURL); ref != "" {
		return p.fetch(ctx, ref)
	}
	return nil, "", fmt.Errorf("source frame is required")
}

func (p *Pipeline) resolvePrompt(ctx context.Context, req RunRequest) (*domain.Prompt, error) {
	if text := strings.TrimSpace(req.Prompt); text != "" {
		return &domain.Prompt{Text: text, Method: domain.PromptMethodSupplied}, nil
	}
	return p.prompts.GeneratePrompt(ctx, req.GenerativeText, req.StyleHint)
}

func (p *Pipeline) fetch(ctx context.Context, ref string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", &domain.UpstreamError{Provider: "source", Status: resp.StatusCode, Detail: "source fetch failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read source: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// publish uploads the artifact bytes and waits for the store to finish
// processing them. Returns the durable artifact on success.
func (p *Pipeline) publish(ctx context.Context, requestID string, artifact *domain.Artifact) (*domain.Artifact, error) {
	if p.store == nil || p.poller == nil {
		return nil, fmt.Errorf("no durable store configured")
	}
	if len(artifact.Data) == 0 {
		return nil, fmt.Errorf("artifact has no bytes to upload")
	}
	target, err := p.store.RequestUpload(ctx, "transform-"+requestID)
	if err != nil {
		return nil, err
	}
	if err := p.store.PutBytes(ctx, target.UploadURL, artifact.Data, artifact.MIME); err != nil {
		return nil, err
	}
	handle, err := p.poller.AwaitReady(ctx, target.Asset, p.pollPolicy)
	if err != nil {
		return nil, err
	}
	url := handle.DownloadURL
	if url == "" {
		url = handle.PlaybackURL
	}
	return &domain.Artifact{
		Kind:     domain.ArtifactKindDurable,
		URL:      url,
		MIME:     artifact.MIME,
		Provider: artifact.Provider,
		Metadata: artifact.Metadata,
	}, nil
}

// saveFallback keeps a local copy of a degraded artifact so it can be served
// again after the inline response is gone. Best effort.
func (p *Pipeline) saveFallback(ctx context.Context, requestID string, artifact *domain.Artifact) {
	if p.fileStore == nil || len(artifact.Data) == 0 {
		return
	}
	key := fmt.Sprintf("degraded/%s%s", requestID, extensionFor(artifact.MIME))
	if _, err := p.fileStore.Write(ctx, key, artifact.Data); err != nil {
		p.logger.Warn().
			Err(err).
			Str("request_id", requestID).
			Msg("media: local fallback write failed")
	}
}

func decodeInline(encoded, mime string) ([]byte, string, error) {
	if strings.HasPrefix(encoded, "data:") {
		rest := strings.TrimPrefix(encoded, "data:")
		meta, payload, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data url")
		}
		if m, _, found := strings.Cut(meta, ";"); found || m != "" {
			mime = m
		}
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("decode inline payload: %w", err)
	}
	return data, mime, nil
}

func extensionFor(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".png"
	}
}
