package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential indicates a provider was selected without the
	// credential it needs. Configuration errors are never retried.
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrPollTimeout indicates an asset was still processing when the poll
	// attempt budget ran out. Distinct from a remote-side failure: the asset
	// might still finish later.
	ErrPollTimeout = errors.New("asset poll budget exhausted")

	// ErrSessionNotReady is the structured signal a live session emits while
	// it cannot accept configuration yet. Retry triggers check it with
	// errors.Is; no caller inspects provider response bodies.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrAssetFailed indicates the remote side reported a terminal failure
	// for an asset. Distinct from ErrPollTimeout: retrying cannot help.
	ErrAssetFailed = errors.New("asset processing failed")

	ErrNoProviders = errors.New("no transformation providers configured")
)

// UpstreamError describes a single failed call to an external service.
type UpstreamError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Detail)
}
