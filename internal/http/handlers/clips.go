package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
	"styleframe/internal/sqlinline"
)

type clipCreateRequest struct {
	DurationMS int `json:"duration_ms"`
}

type clipResponse struct {
	AssetID     string `json:"asset_id"`
	PlaybackID  string `json:"playback_id"`
	Phase       string `json:"phase"`
	DownloadURL string `json:"download_url,omitempty"`
	WindowStart string `json:"window_start,omitempty"`
	WindowEnd   string `json:"window_end,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// ClipCreate extracts the trailing seconds of a live session, waits for the
// resulting asset to finish processing and records it.
func (a *App) ClipCreate(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "stream_id")
	if streamID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "stream_id required")
		return
	}
	var req clipCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.DurationMS <= 0 {
		req.DurationMS = 10_000
	}

	stream, err := a.loadStream(r, streamID)
	if err != nil {
		if infra.IsNoRows(err) {
			a.error(w, http.StatusNotFound, "not_found", "stream not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stream")
		return
	}

	duration := time.Duration(req.DurationMS) * time.Millisecond
	result, err := a.Clips.ExtractClip(r.Context(), stream.PlaybackID, duration)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPollTimeout):
			a.error(w, http.StatusGatewayTimeout, "clip_timeout", err.Error())
		case errors.Is(err, domain.ErrAssetFailed):
			a.error(w, http.StatusBadGateway, "clip_failed", err.Error())
		default:
			a.error(w, http.StatusBadGateway, "clip_failed", err.Error())
		}
		return
	}

	handle := result.Asset
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertClip,
		stream.ID, stream.PlaybackID, handle.ID, result.Window.Start, result.Window.End,
		string(handle.Phase), handle.DownloadURL); err != nil {
		a.Logger.Error().Err(err).Str("asset_id", handle.ID).Msg("handlers: clip record insert failed")
	}

	a.json(w, http.StatusCreated, clipResponse{
		AssetID:     handle.ID,
		PlaybackID:  handle.PlaybackID,
		Phase:       string(handle.Phase),
		DownloadURL: handle.DownloadURL,
		WindowStart: formatTime(result.Window.Start),
		WindowEnd:   formatTime(result.Window.End),
	})
}

// ClipList returns the recorded clips of a stream, newest first.
func (a *App) ClipList(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "stream_id")
	if streamID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "stream_id required")
		return
	}
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListClipsByStream, streamID, 50)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load clips")
		return
	}
	defer rows.Close()
	items := []clipResponse{}
	for rows.Next() {
		var item clipResponse
		var windowStart, windowEnd, createdAt time.Time
		var playbackID string
		if err := rows.Scan(&item.AssetID, &playbackID, &windowStart, &windowEnd,
			&item.Phase, &item.DownloadURL, &createdAt); err != nil {
			continue
		}
		item.PlaybackID = playbackID
		item.WindowStart = formatTime(windowStart)
		item.WindowEnd = formatTime(windowEnd)
		item.CreatedAt = formatTime(createdAt)
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
