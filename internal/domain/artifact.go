package domain

import (
	"encoding/base64"
	"fmt"
)

// ArtifactKind distinguishes a durable hosted artifact from an inline-encoded
// fallback payload.
type ArtifactKind string

const (
	ArtifactKindDurable ArtifactKind = "durable"
	ArtifactKindInline  ArtifactKind = "inline"
)

// Artifact is the output of a transformation. Durable artifacts carry a hosted
// URL; inline artifacts carry the raw bytes and encode on demand. Never
// mutated after creation.
type Artifact struct {
	Kind     ArtifactKind
	URL      string
	MIME     string
	Data     []byte
	Provider string
	Metadata map[string]any
}

// Reference returns the locator a caller can use directly: the hosted URL for
// durable artifacts, a data URL for inline ones.
func (a *Artifact) Reference() string {
	if a == nil {
		return ""
	}
	if a.Kind == ArtifactKindDurable && a.URL != "" {
		return a.URL
	}
	mime := a.MIME
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(a.Data))
}
