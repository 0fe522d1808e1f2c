package domain

// Stream is a handle to a live streaming session. Readiness is discovered
// indirectly: the session rejects configuration pushes with ErrSessionNotReady
// until ingest has started.
type Stream struct {
	ID          string
	StreamKey   string
	PlaybackID  string
	PlaybackURL string
}

// StreamConfig is the advisory rendering configuration pushed onto a live
// session after creation. The session streams with defaults until a push
// lands, so delivery is best effort.
type StreamConfig struct {
	Prompt   string
	Strength float64
	Seed     int
	Record   bool
}
