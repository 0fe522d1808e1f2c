package media

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
)

// ConfigPusher pushes rendering configuration onto a live session. A push
// against a session that has not started ingesting fails with
// domain.ErrSessionNotReady.
type ConfigPusher interface {
	UpdateStream(ctx context.Context, streamID string, config domain.StreamConfig) error
}

// Initializer delivers advisory configuration to a freshly created live
// session. Delivery is best effort: the session already exists and streams
// with defaults, so the outcome surfaces only in logs.
type Initializer struct {
	pusher ConfigPusher
	logger *infra.Logger
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewInitializer builds an initializer with the fixed 2 second retry delay.
func NewInitializer(pusher ConfigPusher, logger *infra.Logger) *Initializer {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Initializer{
		pusher: pusher,
		logger: logger,
		delay:  2 * time.Second,
		sleep:  sleepContext,
	}
}

// PushConfiguration attempts the push until the session accepts it or the
// attempt budget runs out. The first attempt fires immediately, later ones
// wait the fixed delay. Only a not-ready rejection triggers a retry; any
// other failure is logged and abandoned since retrying cannot fix it. Never
// returns an error to the caller.
func (i *Initializer) PushConfiguration(ctx context.Context, streamID string, config domain.StreamConfig, maxAttempts int) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := i.sleep(ctx, i.delay); err != nil {
				i.logger.Warn().
					Err(err).
					Str("stream_id", streamID).
					Msg("media: config push interrupted")
				return
			}
		}
		err := i.pusher.UpdateStream(ctx, streamID, config)
		if err == nil {
			i.logger.Info().
				Str("stream_id", streamID).
				Int("attempt", attempt).
				Msg("media: session configuration accepted")
			return
		}
		if errors.Is(err, domain.ErrSessionNotReady) {
			i.logger.Debug().
				Str("stream_id", streamID).
				Int("attempt", attempt).
				Msg("media: session not ready, will retry")
			continue
		}
		i.logger.Error().
			Err(err).
			Str("stream_id", streamID).
			Int("attempt", attempt).
			Msg("media: config push failed, not retryable")
		return
	}
	i.logger.Warn().
		Str("stream_id", streamID).
		Int("attempts", maxAttempts).
		Msg("media: config push budget exhausted, session keeps defaults")
}

// PushConfigurationAsync runs the push detached from the caller. The caller's
// context is not reused so the push survives the triggering request.
func (i *Initializer) PushConfigurationAsync(streamID string, config domain.StreamConfig, maxAttempts int) {
	go i.PushConfiguration(context.Background(), streamID, config, maxAttempts)
}
