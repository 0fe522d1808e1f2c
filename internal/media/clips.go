package media

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
)

// ClipCreator requests extraction of a segment from a live session. A nil
// window asks for a locator-only clip.
type ClipCreator interface {
	CreateClip(ctx context.Context, playbackID string, window *domain.ClipWindow, name string) (*domain.AssetHandle, error)
}

// ClipOrchestrator turns "clip the last N seconds of this session" into a
// terminal asset handle: compute the window, request the clip, fall back to
// a locator-only request, then wait for the asset to finish processing.
type ClipOrchestrator struct {
	creator ClipCreator
	poller  *Poller
	policy  PollPolicy
	logger  *infra.Logger
	now     func() time.Time
}

// NewClipOrchestrator builds the orchestrator. The policy should carry the
// long video budget, not the short image one.
func NewClipOrchestrator(creator ClipCreator, poller *Poller, policy PollPolicy, logger *infra.Logger) *ClipOrchestrator {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 30
	}
	if policy.Interval <= 0 {
		policy.Interval = 2 * time.Second
	}
	return &ClipOrchestrator{
		creator: creator,
		poller:  poller,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// ClipResult pairs the finished asset with the window the orchestrator
// actually requested, so callers record the window that was clipped rather
// than recomputing one of their own.
type ClipResult struct {
	Asset  *domain.AssetHandle
	Window domain.ClipWindow
}

// ExtractClip extracts the trailing window of a live session and waits for
// the resulting asset to become downloadable. The window sits behind the
// live edge by the fixed safety buffer so the segment exists on the ingest
// side. A timestamped request is tried first; on failure a locator-only
// request approximates it, and if that also fails the error carries the
// primary failure detail.
func (o *ClipOrchestrator) ExtractClip(ctx context.Context, playbackID string, duration time.Duration) (*ClipResult, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("media: clip duration must be positive, got %s", duration)
	}
	window := domain.ComputeClipWindow(o.now(), duration)
	name := fmt.Sprintf("clip-%s-%d", playbackID, window.End.UnixMilli())

	handle, primaryErr := o.creator.CreateClip(ctx, playbackID, &window, name)
	if primaryErr != nil {
		o.logger.Warn().
			Err(primaryErr).
			Str("playback_id", playbackID).
			Msg("media: timestamped clip request failed, trying locator-only")
		var fallbackErr error
		handle, fallbackErr = o.creator.CreateClip(ctx, playbackID, nil, name)
		if fallbackErr != nil {
			return nil, fmt.Errorf("media: clip extraction failed (%v), primary failure: %w", fallbackErr, primaryErr)
		}
	}

	ready, err := o.poller.AwaitReady(ctx, *handle, o.policy)
	if err != nil {
		return nil, err
	}
	return &ClipResult{Asset: ready, Window: window}, nil
}
