package media

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"styleframe/internal/domain"
	"styleframe/internal/providers/image"
)

type fakePrompts struct {
	prompt *domain.Prompt
	err    error
	calls  int
}

func (f *fakePrompts) GeneratePrompt(_ context.Context, _ bool, _ string) (*domain.Prompt, error) {
	f.calls++
	return f.prompt, f.err
}

type fakeChain struct {
	artifact *domain.Artifact
	err      error
	lastReq  image.TransformRequest
}

func (f *fakeChain) Transform(_ context.Context, req image.TransformRequest) (*domain.Artifact, error) {
	f.lastReq = req
	return f.artifact, f.err
}

type fakeStore struct {
	uploadErr error
	putErr    error
	asset     domain.AssetHandle
	putCalls  int
}

func (f *fakeStore) RequestUpload(_ context.Context, _ string) (*domain.UploadTarget, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &domain.UploadTarget{UploadURL: "https://store.test/slot", Asset: f.asset}, nil
}

func (f *fakeStore) PutBytes(_ context.Context, _ string, _ []byte, _ string) error {
	f.putCalls++
	return f.putErr
}

func testArtifact() *domain.Artifact {
	return &domain.Artifact{
		Kind:     domain.ArtifactKindInline,
		MIME:     "image/png",
		Data:     []byte("fake-png"),
		Provider: "qwen",
	}
}

func newTestPipeline(t *testing.T, prompts PromptGenerator, chain Transformer, store AssetStore, reader StatusReader) *Pipeline {
	t.Helper()
	var poller *Poller
	if reader != nil {
		poller = newTestPoller(reader)
	}
	pipeline, err := NewPipeline(PipelineOptions{
		Prompts:    prompts,
		Chain:      chain,
		Store:      store,
		Poller:     poller,
		PollPolicy: PollPolicy{Interval: time.Millisecond, MaxAttempts: 3},
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return pipeline
}

func TestRunPublishesDurableArtifact(t *testing.T) {
	prompts := &fakePrompts{prompt: &domain.Prompt{Text: "neon alley", Method: domain.PromptMethodTemplated}}
	chain := &fakeChain{artifact: testArtifact()}
	store := &fakeStore{asset: domain.AssetHandle{ID: "asset-1"}}
	reader := &scriptedReader{statuses: []domain.AssetStatus{
		{Phase: domain.AssetPhaseReady, DownloadURL: "https://store.test/asset-1.png"},
	}}
	pipeline := newTestPipeline(t, prompts, chain, store, reader)

	result, err := pipeline.Run(context.Background(), RunRequest{ImageData: []byte("frame"), MIME: "image/png"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Degraded {
		t.Fatal("result.Degraded = true, want false")
	}
	if result.Artifact.Kind != domain.ArtifactKindDurable {
		t.Fatalf("artifact.Kind = %q, want durable", result.Artifact.Kind)
	}
	if result.Reference() != "https://store.test/asset-1.png" {
		t.Fatalf("Reference() = %q", result.Reference())
	}
	if result.Provider != "qwen" {
		t.Fatalf("result.Provider = %q, want qwen", result.Provider)
	}
}

func TestRunDegradesWhenUploadAlwaysFails(t *testing.T) {
	prompts := &fakePrompts{prompt: &domain.Prompt{Text: "neon alley", Method: domain.PromptMethodTemplated}}
	chain := &fakeChain{artifact: testArtifact()}
	store := &fakeStore{putErr: errors.New("upload rejected"), asset: domain.AssetHandle{ID: "asset-1"}}
	pipeline := newTestPipeline(t, prompts, chain, store, &scriptedReader{statuses: []domain.AssetStatus{{}}})

	result, err := pipeline.Run(context.Background(), RunRequest{ImageData: []byte("frame"), MIME: "image/png"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Degraded {
		t.Fatal("result.Degraded = false, want true")
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png"))
	if result.Reference() != want {
		t.Fatalf("Reference() = %q, want inline data url", result.Reference())
	}
}

func TestRunDegradesWhenAssetNeverReady(t *testing.T) {
	prompts := &fakePrompts{prompt: &domain.Prompt{Text: "neon alley", Method: domain.PromptMethodTemplated}}
	chain := &fakeChain{artifact: testArtifact()}
	store := &fakeStore{asset: domain.AssetHandle{ID: "asset-1"}}
	reader := &scriptedReader{statuses: []domain.AssetStatus{{Phase: domain.AssetPhaseProcessing}}}
	pipeline := newTestPipeline(t, prompts, chain, store, reader)

	result, err := pipeline.Run(context.Background(), RunRequest{ImageData: []byte("frame"), MIME: "image/png"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Degraded {
		t.Fatal("result.Degraded = false, want true")
	}
}

func TestRunSuppliedPromptSkipsGeneration(t *testing.T) {
	prompts := &fakePrompts{err: errors.New("must not be called")}
	chain := &fakeChain{artifact: testArtifact()}
	store := &fakeStore{putErr: errors.New("offline")}
	pipeline := newTestPipeline(t, prompts, chain, store, &scriptedReader{statuses: []domain.AssetStatus{{}}})

	result, err := pipeline.Run(context.Background(), RunRequest{
		ImageData: []byte("frame"),
		Prompt:    "watercolor harbor at dusk",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if prompts.calls != 0 {
		t.Fatalf("prompts.calls = %d, want 0", prompts.calls)
	}
	if result.Prompt.Method != domain.PromptMethodSupplied {
		t.Fatalf("prompt.Method = %q, want supplied", result.Prompt.Method)
	}
	if chain.lastReq.Prompt.Text != "watercolor harbor at dusk" {
		t.Fatalf("chain prompt = %q", chain.lastReq.Prompt.Text)
	}
}

func TestRunPromptFailureIsFatal(t *testing.T) {
	prompts := &fakePrompts{err: errors.New("llm unavailable")}
	chain := &fakeChain{artifact: testArtifact()}
	pipeline := newTestPipeline(t, prompts, chain, nil, nil)

	if _, err := pipeline.Run(context.Background(), RunRequest{ImageData: []byte("frame"), GenerativeText: true}); err == nil {
		t.Fatal("Run succeeded despite prompt failure")
	}
}

func TestRunChainExhaustionIsFatal(t *testing.T) {
	prompts := &fakePrompts{prompt: &domain.Prompt{Text: "x", Method: domain.PromptMethodTemplated}}
	chain := &fakeChain{err: errors.New("all providers failed")}
	pipeline := newTestPipeline(t, prompts, chain, nil, nil)

	if _, err := pipeline.Run(context.Background(), RunRequest{ImageData: []byte("frame")}); err == nil {
		t.Fatal("Run succeeded despite chain exhaustion")
	}
}

func TestRunDecodesInlinePayload(t *testing.T) {
	prompts := &fakePrompts{prompt: &domain.Prompt{Text: "x", Method: domain.PromptMethodTemplated}}
	chain := &fakeChain{artifact: testArtifact()}
	store := &fakeStore{putErr: errors.New("offline")}
	pipeline := newTestPipeline(t, prompts, chain, store, &scriptedReader{statuses: []domain.AssetStatus{{}}})

	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("frame-bytes"))
	if _, err := pipeline.Run(context.Background(), RunRequest{ImageB64: encoded}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(chain.lastReq.Image) != "frame-bytes" {
		t.Fatalf("chain image = %q", chain.lastReq.Image)
	}
	if chain.lastReq.MIME != "image/jpeg" {
		t.Fatalf("chain mime = %q, want image/jpeg", chain.lastReq.MIME)
	}
}

func TestRunRequiresSourceFrame(t *testing.T) {
	prompts := &fakePrompts{prompt: &domain.Prompt{Text: "x", Method: domain.PromptMethodTemplated}}
	pipeline := newTestPipeline(t, prompts, &fakeChain{artifact: testArtifact()}, nil, nil)

	if _, err := pipeline.Run(context.Background(), RunRequest{}); err == nil {
		t.Fatal("Run accepted a request without a source frame")
	}
	if _, err := pipeline.Run(context.Background(), RunRequest{ImageB64: "%%%not-base64%%%"}); err == nil {
		t.Fatal("Run accepted a malformed inline payload")
	}
}

func TestRunForwardsSeedAndStrength(t *testing.T) {
	prompts := &fakePrompts{prompt: &domain.Prompt{Text: "x", Method: domain.PromptMethodTemplated}}
	chain := &fakeChain{artifact: testArtifact()}
	pipeline := newTestPipeline(t, prompts, chain, nil, nil)

	result, err := pipeline.Run(context.Background(), RunRequest{
		ImageData: []byte("frame"),
		Seed:      1234,
		Strength:  0.65,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if chain.lastReq.Seed != 1234 {
		t.Fatalf("chain seed = %d, want 1234", chain.lastReq.Seed)
	}
	if chain.lastReq.Strength != 0.65 {
		t.Fatalf("chain strength = %v, want 0.65", chain.lastReq.Strength)
	}
	if !result.Degraded {
		t.Fatal("result.Degraded = false, want true when no store is configured")
	}
	if !strings.HasPrefix(result.Reference(), "data:image/png;base64,") {
		t.Fatalf("Reference() = %q, want inline data url", result.Reference())
	}
}
