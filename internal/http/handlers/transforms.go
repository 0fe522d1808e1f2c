package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"styleframe/internal/domain"
	"styleframe/internal/media"
	"styleframe/internal/middleware"
)

type transformRequest struct {
	ImageB64       string  `json:"image_b64"`
	SourceURL      string  `json:"source_url"`
	MIME           string  `json:"mime"`
	Prompt         string  `json:"prompt"`
	StyleHint      string  `json:"style_hint"`
	GenerativeText bool    `json:"generative_prompt"`
	Seed           int     `json:"seed"`
	Strength       float64 `json:"strength"`
}

type transformResponse struct {
	Reference string                  `json:"reference"`
	Provider  string                  `json:"provider"`
	Degraded  bool                    `json:"degraded"`
	Prompt    transformPromptResponse `json:"prompt"`
}

type transformPromptResponse struct {
	Text      string `json:"text"`
	Method    string `json:"method"`
	Fragments any    `json:"fragments,omitempty"`
}

// Transform runs one transformation synchronously inside the request. Frames
// too large for that go through the job queue instead.
func (a *App) Transform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ImageB64 == "" && req.SourceURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_b64 or source_url is required")
		return
	}

	result, err := a.Pipeline.Run(r.Context(), media.RunRequest{
		ImageB64:       req.ImageB64,
		SourceURL:      req.SourceURL,
		MIME:           req.MIME,
		Prompt:         req.Prompt,
		StyleHint:      req.StyleHint,
		GenerativeText: req.GenerativeText,
		Seed:           req.Seed,
		Strength:       req.Strength,
		RequestID:      middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingCredential):
			a.error(w, http.StatusServiceUnavailable, "not_configured", err.Error())
		case errors.Is(err, domain.ErrNoProviders):
			a.error(w, http.StatusServiceUnavailable, "not_configured", err.Error())
		default:
			a.error(w, http.StatusBadGateway, "transform_failed", err.Error())
		}
		return
	}

	resp := transformResponse{
		Reference: result.Reference(),
		Provider:  result.Provider,
		Degraded:  result.Degraded,
		Prompt: transformPromptResponse{
			Text:   result.Prompt.Text,
			Method: string(result.Prompt.Method),
		},
	}
	if f := result.Prompt.Fragments; f != nil {
		resp.Prompt.Fragments = map[string]string{
			"style":       f.Style,
			"environment": f.Environment,
			"effect":      f.Effect,
		}
	}
	a.json(w, http.StatusOK, resp)
}
