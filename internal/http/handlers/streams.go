package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
	"styleframe/internal/sqlinline"
)

type streamCreateRequest struct {
	Name     string  `json:"name"`
	Prompt   string  `json:"prompt"`
	Strength float64 `json:"strength"`
	Seed     int     `json:"seed"`
	Record   bool    `json:"record"`
}

type streamResponse struct {
	ID          string `json:"id"`
	StreamKey   string `json:"stream_key,omitempty"`
	PlaybackID  string `json:"playback_id"`
	PlaybackURL string `json:"playback_url"`
}

// StreamCreate provisions a live session and detaches the advisory config
// push. The response never waits for the push to land.
func (a *App) StreamCreate(w http.ResponseWriter, r *http.Request) {
	var req streamCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Name == "" {
		req.Name = "session-" + time.Now().UTC().Format("20060102-150405")
	}

	stream, err := a.Sessions.CreateStream(r.Context(), req.Name)
	if err != nil {
		a.error(w, http.StatusBadGateway, "stream_failed", err.Error())
		return
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertStream,
		stream.ID, stream.StreamKey, stream.PlaybackID, stream.PlaybackURL); err != nil {
		a.Logger.Error().Err(err).Str("stream_id", stream.ID).Msg("handlers: stream record insert failed")
	}

	if req.Prompt != "" || req.Strength > 0 || req.Seed > 0 || req.Record {
		a.Initializer.PushConfigurationAsync(stream.ID, domain.StreamConfig{
			Prompt:   req.Prompt,
			Strength: req.Strength,
			Seed:     req.Seed,
			Record:   req.Record,
		}, a.ConfigPushAttempts)
	}

	a.json(w, http.StatusCreated, streamResponse{
		ID:          stream.ID,
		StreamKey:   stream.StreamKey,
		PlaybackID:  stream.PlaybackID,
		PlaybackURL: stream.PlaybackURL,
	})
}

// StreamGet returns a stored stream record.
func (a *App) StreamGet(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "stream_id")
	if streamID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "stream_id required")
		return
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
	a.json(w, http.StatusOK, streamResponse{
		ID:          stream.ID,
		PlaybackID:  stream.PlaybackID,
		PlaybackURL: stream.PlaybackURL,
	})
}

func (a *App) loadStream(r *http.Request, streamID string) (*domain.Stream, error) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectStream, streamID)
	var stream domain.Stream
	var createdAt time.Time
	if err := row.Scan(&stream.ID, &stream.StreamKey, &stream.PlaybackID, &stream.PlaybackURL, &createdAt); err != nil {
		return nil, err
	}
	return &stream, nil
}
