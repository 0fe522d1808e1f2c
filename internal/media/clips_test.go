package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"styleframe/internal/domain"
)

type scriptedClipCreator struct {
	timestampedErr error
	locatorErr     error
	handle         *domain.AssetHandle
	windows        []*domain.ClipWindow
}

func (c *scriptedClipCreator) CreateClip(_ context.Context, _ string, window *domain.ClipWindow, _ string) (*domain.AssetHandle, error) {
	c.windows = append(c.windows, window)
	if window != nil {
		if c.timestampedErr != nil {
			return nil, c.timestampedErr
		}
		return c.handle, nil
	}
	if c.locatorErr != nil {
		return nil, c.locatorErr
	}
	return c.handle, nil
}

func newTestOrchestrator(creator ClipCreator, reader StatusReader, now time.Time) *ClipOrchestrator {
	o := NewClipOrchestrator(creator, newTestPoller(reader), PollPolicy{Interval: time.Millisecond, MaxAttempts: 5}, nil)
	o.now = func() time.Time { return now }
	return o
}

func TestExtractClipWindowMath(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	creator := &scriptedClipCreator{handle: &domain.AssetHandle{ID: "clip-1"}}
	reader := &scriptedReader{statuses: []domain.AssetStatus{
		{Phase: domain.AssetPhaseReady, DownloadURL: "https://store.test/clip-1.mp4"},
	}}
	o := newTestOrchestrator(creator, reader, now)

	result, err := o.ExtractClip(context.Background(), "play-1", 10*time.Second)
	if err != nil {
		t.Fatalf("ExtractClip: %v", err)
	}
	if result.Asset.DownloadURL == "" {
		t.Fatal("asset DownloadURL is empty")
	}
	if len(creator.windows) != 1 || creator.windows[0] == nil {
		t.Fatalf("windows = %v, want one timestamped request", creator.windows)
	}
	window := creator.windows[0]
	if got := window.End.Sub(window.Start); got != 10*time.Second {
		t.Fatalf("window duration = %s, want 10s", got)
	}
	if got := now.Sub(window.End); got != 2*time.Second {
		t.Fatalf("now - end = %s, want the 2s safety buffer", got)
	}
	if !result.Window.Start.Equal(window.Start) || !result.Window.End.Equal(window.End) {
		t.Fatalf("result window %v-%v differs from requested window %v-%v",
			result.Window.Start, result.Window.End, window.Start, window.End)
	}
}

func TestExtractClipFallsBackToLocatorOnly(t *testing.T) {
	creator := &scriptedClipCreator{
		timestampedErr: &domain.UpstreamError{Provider: "livepeer", Status: 400, Detail: "window out of range"},
		handle:         &domain.AssetHandle{ID: "clip-1"},
	}
	reader := &scriptedReader{statuses: []domain.AssetStatus{
		{Phase: domain.AssetPhaseReady, DownloadURL: "https://store.test/clip-1.mp4"},
	}}
	o := newTestOrchestrator(creator, reader, time.Now())

	if _, err := o.ExtractClip(context.Background(), "play-1", 10*time.Second); err != nil {
		t.Fatalf("ExtractClip: %v", err)
	}
	if len(creator.windows) != 2 {
		t.Fatalf("creator saw %d requests, want 2", len(creator.windows))
	}
	if creator.windows[1] != nil {
		t.Fatal("fallback request carried a window, want locator-only")
	}
}

func TestExtractClipCombinedErrorCarriesPrimaryDetail(t *testing.T) {
	primary := &domain.UpstreamError{Provider: "livepeer", Status: 400, Detail: "window out of range"}
	creator := &scriptedClipCreator{
		timestampedErr: primary,
		locatorErr:     errors.New("quota exceeded"),
	}
	o := newTestOrchestrator(creator, &scriptedReader{statuses: []domain.AssetStatus{{}}}, time.Now())

	_, err := o.ExtractClip(context.Background(), "play-1", 10*time.Second)
	if err == nil {
		t.Fatal("ExtractClip: expected error")
	}
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) || upstream.Detail != "window out of range" {
		t.Fatalf("error %v does not carry the primary failure detail", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error %q does not mention the fallback failure", err.Error())
	}
}

func TestExtractClipDelegatesToPoller(t *testing.T) {
	creator := &scriptedClipCreator{handle: &domain.AssetHandle{ID: "clip-1"}}
	reader := &scriptedReader{statuses: []domain.AssetStatus{
		{Phase: domain.AssetPhaseProcessing},
	}}
	o := newTestOrchestrator(creator, reader, time.Now())

	_, err := o.ExtractClip(context.Background(), "play-1", 5*time.Second)
	if !errors.Is(err, domain.ErrPollTimeout) {
		t.Fatalf("ExtractClip error = %v, want ErrPollTimeout", err)
	}
	if reader.calls != 5 {
		t.Fatalf("reader.calls = %d, want the configured budget of 5", reader.calls)
	}
}

func TestExtractClipRejectsNonPositiveDuration(t *testing.T) {
	o := newTestOrchestrator(&scriptedClipCreator{}, &scriptedReader{statuses: []domain.AssetStatus{{}}}, time.Now())
	if _, err := o.ExtractClip(context.Background(), "play-1", 0); err == nil {
		t.Fatal("ExtractClip accepted a zero duration")
	}
}
