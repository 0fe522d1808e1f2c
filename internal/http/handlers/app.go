package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"styleframe/internal/domain"
	"styleframe/internal/infra"
	"styleframe/internal/media"
)

// SessionProvider is the live-session surface the handlers need.
type SessionProvider interface {
	CreateStream(ctx context.Context, name string) (*domain.Stream, error)
}

// App carries the wired dependencies for all HTTP handlers.
type App struct {
	SQL         infra.SQLExecutor
	Pipeline    *media.Pipeline
	Clips       *media.ClipOrchestrator
	Sessions    SessionProvider
	Initializer *media.Initializer
	Logger      infra.Logger

	ConfigPushAttempts int
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, errorResponse{Error: slug, Message: message})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
