package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"styleframe/internal/http/handlers"
	"styleframe/internal/middleware"
)

// Options carries the cross-cutting settings the router wires as middleware.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(opts.Logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/transforms", func(r chi.Router) {
		r.Post("/", app.Transform)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.JobEnqueue)
		r.Get("/{job_id}", app.JobStatus)
	})

	r.Route("/v1/streams", func(r chi.Router) {
		r.Post("/", app.StreamCreate)
		r.Get("/{stream_id}", app.StreamGet)
		r.Post("/{stream_id}/clips", app.ClipCreate)
		r.Get("/{stream_id}/clips", app.ClipList)
	})

	return r
}
