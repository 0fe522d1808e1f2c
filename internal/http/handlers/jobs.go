package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"styleframe/internal/infra"
	"styleframe/internal/sqlinline"
)

type jobEnqueueRequest struct {
	SourceURL string   `json:"source_url"`
	StyleHint string   `json:"style_hint"`
	Seed      *int     `json:"seed"`
	Providers []string `json:"providers"`
}

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobEnqueue queues a transformation for the background worker.
func (a *App) JobEnqueue(w http.ResponseWriter, r *http.Request) {
	var req jobEnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.SourceURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "source_url is required")
		return
	}
	jobID := uuid.NewString()
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertTransformJob,
		jobID, req.SourceURL, req.StyleHint, req.Seed, req.Providers); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.json(w, http.StatusAccepted, jobResponse{JobID: jobID, Status: "QUEUED"})
}

// JobStatus reports the state of a queued transformation.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectTransformJob, jobID)
	var (
		id, sourceURL, styleHint, status    string
		reference, provider, prompt, jobErr string
		degraded                            bool
		createdAt, updatedAt                time.Time
	)
	if err := row.Scan(&id, &sourceURL, &styleHint, &status, &reference, &provider,
		&prompt, &degraded, &jobErr, &createdAt, &updatedAt); err != nil {
		if infra.IsNoRows(err) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":         id,
		"source_url": sourceURL,
		"style_hint": styleHint,
		"status":     status,
		"reference":  reference,
		"provider":   provider,
		"prompt":     prompt,
		"degraded":   degraded,
		"error":      jobErr,
		"created_at": formatTime(createdAt),
		"updated_at": formatTime(updatedAt),
	})
}
