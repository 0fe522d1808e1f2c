package domain

import "time"

// ClipSafetyBuffer keeps clip windows behind the live edge so the requested
// segment has actually materialized on the ingest side.
const ClipSafetyBuffer = 2 * time.Second

// ClipWindow is the segment of a live session to extract. Computed fresh per
// request, never persisted directly.
type ClipWindow struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w ClipWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ComputeClipWindow derives the window [now-buffer-duration, now-buffer].
func ComputeClipWindow(now time.Time, duration time.Duration) ClipWindow {
	end := now.Add(-ClipSafetyBuffer)
	return ClipWindow{Start: end.Add(-duration), End: end}
}
