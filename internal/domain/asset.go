package domain

// AssetPhase is the lifecycle state of an asynchronously-processed remote
// asset. Ready and failed are terminal; a handle never transitions backward.
type AssetPhase string

const (
	AssetPhaseProcessing AssetPhase = "processing"
	AssetPhaseReady      AssetPhase = "ready"
	AssetPhaseFailed     AssetPhase = "failed"
)

// AssetStatus is one observation of a remote asset, as reported by the host.
type AssetStatus struct {
	Phase       AssetPhase
	Progress    float64
	DownloadURL string
	PlaybackURL string
	Detail      string
}

// AssetHandle is an opaque reference to a remote asset plus its last observed
// state. Only the readiness poller updates it. The asset id is an opaque
// string; nothing here parses it.
type AssetHandle struct {
	ID          string
	PlaybackID  string
	Phase       AssetPhase
	Progress    float64
	DownloadURL string
	PlaybackURL string
	Detail      string
}

// UploadTarget is a pre-signed direct-upload slot in the durable asset store
// plus the handle of the asset it will become.
type UploadTarget struct {
	UploadURL string
	Asset     AssetHandle
}

// Terminal reports whether the handle reached a final phase.
func (h *AssetHandle) Terminal() bool {
	return h.Phase == AssetPhaseReady || h.Phase == AssetPhaseFailed
}

// Observe folds a fresh status into the handle. Observations against a
// terminal handle are ignored so ready/failed stay sticky.
func (h *AssetHandle) Observe(status AssetStatus) {
	if h.Terminal() {
		return
	}
	h.Phase = status.Phase
	if status.Progress > h.Progress {
		h.Progress = status.Progress
	}
	if status.DownloadURL != "" {
		h.DownloadURL = status.DownloadURL
	}
	if status.PlaybackURL != "" {
		h.PlaybackURL = status.PlaybackURL
	}
	if status.Detail != "" {
		h.Detail = status.Detail
	}
}
