package livepeer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("livepeer: api key is required: %w", domain.ErrMissingCredential)

// Options configures the Livepeer Studio client, which serves as both the
// durable asset store and the live session provider.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the Livepeer Studio API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type streamResponse struct {
	ID         string `json:"id"`
	StreamKey  string `json:"streamKey"`
	PlaybackID string `json:"playbackId"`
}

type assetResponse struct {
	ID          string `json:"id"`
	PlaybackID  string `json:"playbackId"`
	DownloadURL string `json:"downloadUrl"`
	PlaybackURL string `json:"playbackUrl"`
	Status      struct {
		Phase        string  `json:"phase"`
		Progress     float64 `json:"progress"`
		ErrorMessage string  `json:"errorMessage"`
	} `json:"status"`
}

type uploadResponse struct {
	URL   string        `json:"url"`
	Asset assetResponse `json:"asset"`
}

type clipResponse struct {
	Asset assetResponse `json:"asset"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://livepeer.studio/api"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreateStream provisions a live session. The returned handle is usable
// immediately for ingest; configuration pushes against it may still be
// rejected with ErrSessionNotReady until ingest starts.
func (c *Client) CreateStream(ctx context.Context, name string) (*domain.Stream, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	payload := map[string]any{"name": strings.TrimSpace(name)}
	var decoded streamResponse
	if err := c.invoke(ctx, http.MethodPost, "/stream", payload, &decoded); err != nil {
		return nil, err
	}
	if decoded.ID == "" {
		return nil, &domain.UpstreamError{Provider: "livepeer", Detail: "stream response missing id"}
	}
	c.logger.Debug().
		Str("stream_id", decoded.ID).
		Str("playback_id", decoded.PlaybackID).
		Msg("livepeer: stream created")
	return &domain.Stream{
		ID:          decoded.ID,
		StreamKey:   decoded.StreamKey,
		PlaybackID:  decoded.PlaybackID,
		PlaybackURL: playbackURL(decoded.PlaybackID),
	}, nil
}

// UpdateStream pushes rendering configuration onto an existing session. A
// session that has not started ingesting rejects the push; that rejection is
// surfaced as domain.ErrSessionNotReady so callers can retry on it alone.
func (c *Client) UpdateStream(ctx context.Context, streamID string, config domain.StreamConfig) error {
	if !c.HasCredentials() {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(streamID) == "" {
		return fmt.Errorf("livepeer: stream id is required")
	}
	payload := map[string]any{"record": config.Record}
	params := map[string]any{}
	if prompt := strings.TrimSpace(config.Prompt); prompt != "" {
		params["prompt"] = prompt
	}
	if config.Strength > 0 {
		params["strength"] = config.Strength
	}
	if config.Seed > 0 {
		params["seed"] = config.Seed
	}
	if len(params) > 0 {
		payload["params"] = params
	}
	err := c.invoke(ctx, http.MethodPatch, "/stream/"+streamID, payload, nil)
	if err == nil {
		return nil
	}
	if upstream, ok := asUpstream(err); ok && isNotReady(upstream) {
		return fmt.Errorf("livepeer: stream %s: %w", streamID, domain.ErrSessionNotReady)
	}
	return err
}

// RequestUpload asks for a pre-signed direct-upload slot in the asset store.
func (c *Client) RequestUpload(ctx context.Context, name string) (*domain.UploadTarget, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	payload := map[string]any{"name": strings.TrimSpace(name)}
	var decoded uploadResponse
	if err := c.invoke(ctx, http.MethodPost, "/asset/request-upload", payload, &decoded); err != nil {
		return nil, err
	}
	if decoded.URL == "" || decoded.Asset.ID == "" {
		return nil, &domain.UpstreamError{Provider: "livepeer", Detail: "upload response missing url or asset id"}
	}
	return &domain.UploadTarget{UploadURL: decoded.URL, Asset: toHandle(decoded.Asset)}, nil
}

// PutBytes uploads raw bytes to a pre-signed upload URL.
func (c *Client) PutBytes(ctx context.Context, uploadURL string, data []byte, mime string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("livepeer: build upload request: %w", err)
	}
	if mime != "" {
		req.Header.Set("Content-Type", mime)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("livepeer: upload bytes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &domain.UpstreamError{Provider: "livepeer", Status: resp.StatusCode, Detail: upstreamDetail(raw)}
	}
	return nil
}

// AssetStatus reads the current lifecycle state of an asset. Idempotent.
func (c *Client) AssetStatus(ctx context.Context, assetID string) (domain.AssetStatus, error) {
	if !c.HasCredentials() {
		return domain.AssetStatus{}, ErrMissingAPIKey
	}
	if strings.TrimSpace(assetID) == "" {
		return domain.AssetStatus{}, fmt.Errorf("livepeer: asset id is required")
	}
	var decoded assetResponse
	if err := c.invoke(ctx, http.MethodGet, "/asset/"+assetID, nil, &decoded); err != nil {
		return domain.AssetStatus{}, err
	}
	return domain.AssetStatus{
		Phase:       toPhase(decoded.Status.Phase),
		Progress:    decoded.Status.Progress,
		DownloadURL: decoded.DownloadURL,
		PlaybackURL: decoded.PlaybackURL,
		Detail:      decoded.Status.ErrorMessage,
	}, nil
}

// CreateClip requests extraction of a segment from a live session. A nil
// window asks the provider to clip by session identity alone.
func (c *Client) CreateClip(ctx context.Context, playbackID string, window *domain.ClipWindow, name string) (*domain.AssetHandle, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(playbackID) == "" {
		return nil, fmt.Errorf("livepeer: playback id is required")
	}
	payload := map[string]any{"playbackId": playbackID}
	if name = strings.TrimSpace(name); name != "" {
		payload["name"] = name
	}
	if window != nil {
		payload["startTime"] = window.Start.UnixMilli()
		payload["endTime"] = window.End.UnixMilli()
	}
	var decoded clipResponse
	if err := c.invoke(ctx, http.MethodPost, "/clip", payload, &decoded); err != nil {
		return nil, err
	}
	if decoded.Asset.ID == "" {
		return nil, &domain.UpstreamError{Provider: "livepeer", Detail: "clip response missing asset id"}
	}
	handle := toHandle(decoded.Asset)
	return &handle, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("livepeer: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("livepeer: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("livepeer: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("livepeer: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &domain.UpstreamError{Provider: "livepeer", Status: resp.StatusCode, Detail: upstreamDetail(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("livepeer: decode response: %w", err)
	}
	return nil
}

func asUpstream(err error) (*domain.UpstreamError, bool) {
	upstream, ok := err.(*domain.UpstreamError)
	return upstream, ok
}

// isNotReady recognizes the provider's "session not ready" rejection. The
// translation to domain.ErrSessionNotReady happens here, at the boundary, so
// callers never inspect response bodies.
func isNotReady(err *domain.UpstreamError) bool {
	if err.Status == http.StatusConflict || err.Status == http.StatusTooEarly {
		return true
	}
	return strings.Contains(strings.ToLower(err.Detail), "not ready")
}

func toPhase(phase string) domain.AssetPhase {
	switch strings.ToLower(strings.TrimSpace(phase)) {
	case "ready":
		return domain.AssetPhaseReady
	case "failed":
		return domain.AssetPhaseFailed
	default:
		return domain.AssetPhaseProcessing
	}
}

func toHandle(a assetResponse) domain.AssetHandle {
	return domain.AssetHandle{
		ID:          a.ID,
		PlaybackID:  a.PlaybackID,
		Phase:       toPhase(a.Status.Phase),
		Progress:    a.Status.Progress,
		DownloadURL: a.DownloadURL,
		PlaybackURL: a.PlaybackURL,
		Detail:      a.Status.ErrorMessage,
	}
}

func playbackURL(playbackID string) string {
	if playbackID == "" {
		return ""
	}
	return fmt.Sprintf("https://livepeercdn.studio/hls/%s/index.m3u8", playbackID)
}

func upstreamDetail(raw []byte) string {
	var detail struct {
		Errors  []string `json:"errors"`
		Message string   `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if len(detail.Errors) > 0 {
			return strings.Join(detail.Errors, "; ")
		}
		if detail.Message != "" {
			return detail.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
