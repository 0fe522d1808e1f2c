package domain

import "time"

// JobStatus enumerates transform job queue states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// TransformJob is a queued transformation request for frames too large to run
// inside the request/response cycle.
type TransformJob struct {
	ID        string
	SourceURL string
	StyleHint string
	Seed      *int
	Providers []string
	Status    JobStatus
	Reference string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
