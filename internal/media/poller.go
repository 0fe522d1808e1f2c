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

// StatusReader reads the current lifecycle state of a remote asset. Reads are
// idempotent.
type StatusReader interface {
	AssetStatus(ctx context.Context, assetID string) (domain.AssetStatus, error)
}

// PollPolicy bounds one polling run. The budget is configuration, not a
// per-call-site constant: images get a short budget, video assets a long one.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Poller waits for an asynchronously-processed remote asset to reach a
// terminal state, with a bounded attempt budget.
type Poller struct {
	reader StatusReader
	logger *infra.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPoller builds a poller over the given status reader.
func NewPoller(reader StatusReader, logger *infra.Logger) *Poller {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Poller{reader: reader, logger: logger, sleep: sleepContext}
}

// AwaitReady polls until the asset is ready with a usable locator, the remote
// side reports failure, or the attempt budget runs out. A failed asset aborts
// immediately. Budget exhaustion returns ErrPollTimeout so callers can tell
// "gave up" apart from "rejected".
func (p *Poller) AwaitReady(ctx context.Context, handle domain.AssetHandle, policy PollPolicy) (*domain.AssetHandle, error) {
	if policy.MaxAttempts <= 0 {
		return nil, fmt.Errorf("media: poll attempts must be positive, got %d", policy.MaxAttempts)
	}
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		status, err := p.reader.AssetStatus(ctx, handle.ID)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("asset_id", handle.ID).
				Int("attempt", attempt).
				Msg("media: asset status read failed")
		} else {
			handle.Observe(status)
			switch status.Phase {
			case domain.AssetPhaseReady:
				if handle.DownloadURL != "" || handle.PlaybackURL != "" {
					p.logger.Debug().
						Str("asset_id", handle.ID).
						Int("attempt", attempt).
						Msg("media: asset ready")
					return &handle, nil
				}
				p.logger.Warn().
					Str("asset_id", handle.ID).
					Int("attempt", attempt).
					Msg("media: asset ready without locator, still waiting")
			case domain.AssetPhaseFailed:
				detail := status.Detail
				if detail == "" {
					detail = "no detail reported"
				}
				return nil, fmt.Errorf("media: asset %s: %s: %w", handle.ID, detail, domain.ErrAssetFailed)
			}
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, policy.Interval); err != nil {
			return nil, fmt.Errorf("media: poll interrupted: %w", err)
		}
	}
	return nil, fmt.Errorf("media: asset %s still processing after %d attempts: %w", handle.ID, policy.MaxAttempts, domain.ErrPollTimeout)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
