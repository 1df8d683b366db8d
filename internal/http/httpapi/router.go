// Package httpapi assembles the chi router for the public API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"saun/internal/http/handlers"
	"saun/internal/middleware"
)

// Options carries the process-scoped pieces the router mounts.
type Options struct {
	Logger      zerolog.Logger
	CORSOrigins []string
	// Limiter guards mutating routes; nil disables rate limiting.
	Limiter *middleware.RateLimiter
	// Country resolves the shopping market; nil falls back to request hints.
	Country middleware.CountryLookup
	// StaticDir, when set, is served under /static.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	limited := func(h http.HandlerFunc) http.Handler {
		if opts.Limiter == nil {
			return h
		}
		return opts.Limiter.Middleware(h)
	}

	r.Get("/health", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Method(http.MethodPost, "/", limited(app.CreateSession))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetSession)
				r.Method(http.MethodDelete, "/", limited(app.DeleteSession))
				r.Get("/assets.zip", app.SessionArchive)
				r.Method(http.MethodPost, "/rate", limited(app.RateSession))
				r.Method(http.MethodPost, "/generate", limited(app.GenerateEdits))
			})
		})

		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", app.GetJob)
			r.Get("/events", app.JobEvents)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Market(opts.Country))
			r.Get("/search", app.SearchOne)
			r.Method(http.MethodPost, "/search/batch", limited(app.SearchBatch))
		})

		r.Method(http.MethodPost, "/analyze-photo", limited(app.AnalyzePhoto))
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle("/static/*", fs)
	}

	return r
}
