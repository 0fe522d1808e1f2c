package livepeer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"styleframe/internal/domain"
)

type captureTransport struct {
	responses map[string]responseStub
	lastBody  []byte
	lastPath  string
	method    string
}

type responseStub struct {
	status int
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.lastPath = req.URL.Path
	c.method = req.Method
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	key := req.Method + " " + req.URL.Path
	if stub, ok := c.responses[key]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) set(method, path string, status int, payload any) {
	var body []byte
	switch v := payload.(type) {
	case string:
		body = []byte(v)
	default:
		body, _ = json.Marshal(v)
	}
	c.responses[method+" "+path] = responseStub{status: status, body: body}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{"Content-Type": []string{"application/json"}}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(string(s.body))),
	}
}

func newTestClient(t *testing.T) (*Client, *captureTransport) {
	t.Helper()
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "lp-test-key",
		BaseURL:    "https://livepeer.test/api",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, transport
}

func TestCreateStream(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodPost, "/api/stream", http.StatusCreated, map[string]any{
		"id":         "stream-1",
		"streamKey":  "key-1",
		"playbackId": "play-1",
	})

	stream, err := client.CreateStream(context.Background(), "dream room")
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	if stream.ID != "stream-1" {
		t.Fatalf("stream.ID = %q, want %q", stream.ID, "stream-1")
	}
	if !strings.Contains(stream.PlaybackURL, "play-1") {
		t.Fatalf("stream.PlaybackURL = %q, want playback id embedded", stream.PlaybackURL)
	}
	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if payload["name"] != "dream room" {
		t.Fatalf("payload name = %v, want %q", payload["name"], "dream room")
	}
}

func TestUpdateStreamNotReady(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodPatch, "/api/stream/stream-1", http.StatusConflict, map[string]any{
		"errors": []string{"stream is not ready yet"},
	})

	err := client.UpdateStream(context.Background(), "stream-1", domain.StreamConfig{Prompt: "neon alley"})
	if !errors.Is(err, domain.ErrSessionNotReady) {
		t.Fatalf("UpdateStream error = %v, want ErrSessionNotReady", err)
	}
}

func TestUpdateStreamNotReadyBodySignature(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodPatch, "/api/stream/stream-1", http.StatusBadRequest, map[string]any{
		"errors": []string{"stream not ready for updates"},
	})

	err := client.UpdateStream(context.Background(), "stream-1", domain.StreamConfig{Prompt: "neon alley"})
	if !errors.Is(err, domain.ErrSessionNotReady) {
		t.Fatalf("UpdateStream error = %v, want ErrSessionNotReady", err)
	}
}

func TestUpdateStreamOtherFailureIsNotRetryable(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodPatch, "/api/stream/stream-1", http.StatusForbidden, map[string]any{
		"errors": []string{"invalid api key"},
	})

	err := client.UpdateStream(context.Background(), "stream-1", domain.StreamConfig{Prompt: "neon alley"})
	if errors.Is(err, domain.ErrSessionNotReady) {
		t.Fatalf("UpdateStream error = %v, must not be ErrSessionNotReady", err)
	}
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusForbidden {
		t.Fatalf("UpdateStream error = %v, want upstream 403", err)
	}
}

func TestRequestUploadAndPutBytes(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodPost, "/api/asset/request-upload", http.StatusOK, map[string]any{
		"url": "https://livepeer.test/upload/slot-1",
		"asset": map[string]any{
			"id":         "asset-1",
			"playbackId": "play-1",
			"status":     map[string]any{"phase": "waiting"},
		},
	})
	transport.set(http.MethodPut, "/upload/slot-1", http.StatusOK, "")

	target, err := client.RequestUpload(context.Background(), "styled frame")
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}
	if target.Asset.ID != "asset-1" {
		t.Fatalf("target.Asset.ID = %q, want %q", target.Asset.ID, "asset-1")
	}
	if target.Asset.Phase != domain.AssetPhaseProcessing {
		t.Fatalf("target.Asset.Phase = %q, want processing", target.Asset.Phase)
	}

	if err := client.PutBytes(context.Background(), target.UploadURL, []byte{0x89, 0x50}, "image/png"); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	if transport.method != http.MethodPut {
		t.Fatalf("last method = %q, want PUT", transport.method)
	}
}

func TestAssetStatusPhases(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodGet, "/api/asset/asset-1", http.StatusOK, map[string]any{
		"id":          "asset-1",
		"downloadUrl": "https://livepeer.test/dl/asset-1.mp4",
		"status":      map[string]any{"phase": "ready", "progress": 1.0},
	})

	status, err := client.AssetStatus(context.Background(), "asset-1")
	if err != nil {
		t.Fatalf("AssetStatus: %v", err)
	}
	if status.Phase != domain.AssetPhaseReady {
		t.Fatalf("status.Phase = %q, want ready", status.Phase)
	}
	if status.DownloadURL == "" {
		t.Fatal("status.DownloadURL is empty")
	}
}

func TestAssetStatusFailed(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodGet, "/api/asset/asset-2", http.StatusOK, map[string]any{
		"id":     "asset-2",
		"status": map[string]any{"phase": "failed", "errorMessage": "transcode error"},
	})

	status, err := client.AssetStatus(context.Background(), "asset-2")
	if err != nil {
		t.Fatalf("AssetStatus: %v", err)
	}
	if status.Phase != domain.AssetPhaseFailed {
		t.Fatalf("status.Phase = %q, want failed", status.Phase)
	}
	if status.Detail != "transcode error" {
		t.Fatalf("status.Detail = %q, want %q", status.Detail, "transcode error")
	}
}

func TestCreateClipWithWindow(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodPost, "/api/clip", http.StatusOK, map[string]any{
		"asset": map[string]any{
			"id":     "clip-asset-1",
			"status": map[string]any{"phase": "waiting"},
		},
	})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := domain.ComputeClipWindow(now, 10*time.Second)
	handle, err := client.CreateClip(context.Background(), "play-1", &window, "clip")
	if err != nil {
		t.Fatalf("CreateClip: %v", err)
	}
	if handle.ID != "clip-asset-1" {
		t.Fatalf("handle.ID = %q, want %q", handle.ID, "clip-asset-1")
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	start := int64(payload["startTime"].(float64))
	end := int64(payload["endTime"].(float64))
	if end-start != 10_000 {
		t.Fatalf("end-start = %d ms, want 10000", end-start)
	}
	if now.UnixMilli()-end != 2_000 {
		t.Fatalf("now-end = %d ms, want 2000", now.UnixMilli()-end)
	}
}

func TestCreateClipLocatorOnlyOmitsTimestamps(t *testing.T) {
	client, transport := newTestClient(t)
	transport.set(http.MethodPost, "/api/clip", http.StatusOK, map[string]any{
		"asset": map[string]any{
			"id":     "clip-asset-2",
			"status": map[string]any{"phase": "waiting"},
		},
	})

	if _, err := client.CreateClip(context.Background(), "play-1", nil, ""); err != nil {
		t.Fatalf("CreateClip: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if _, ok := payload["startTime"]; ok {
		t.Fatal("payload contains startTime for locator-only clip")
	}
	if _, ok := payload["endTime"]; ok {
		t.Fatal("payload contains endTime for locator-only clip")
	}
}

func TestMissingCredentials(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.CreateStream(context.Background(), "x"); !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("CreateStream error = %v, want ErrMissingCredential", err)
	}
	if _, err := client.AssetStatus(context.Background(), "a"); !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("AssetStatus error = %v, want ErrMissingCredential", err)
	}
}
