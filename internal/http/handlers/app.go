package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/events"
	"saun/internal/generation"
	"saun/internal/middleware"
	"saun/internal/rating"
	"saun/internal/search"
	"saun/internal/session"
)

// JobReader loads a single job.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*domain.GenerationJob, error)
}

// App carries the services behind the HTTP surface. Every field is built once
// in main and shared by all requests.
type App struct {
	Sessions   *session.Service
	Rating     *rating.Service
	Generation *generation.Service
	Jobs       JobReader
	Search     *search.Aggregator
	Hub        *events.Hub
	Logger     zerolog.Logger

	// SearchMaxItems bounds a batch search request.
	SearchMaxItems int
	// SearchConcurrency is the caller-side fan-out hint passed to the aggregator.
	SearchConcurrency int
	// Ping reports store readiness for /health; nil means always ready.
	Ping func(ctx context.Context) error
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (a *App) error(w http.ResponseWriter, r *http.Request, code int, kind domain.ErrorKind, message string) {
	a.json(w, code, map[string]any{"error": errorBody{
		Code:      string(kind),
		Message:   message,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}})
}

// fail maps err onto its status code and the error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	a.failSession(w, r, "", err)
}

func (a *App) failSession(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	kind := domain.KindOf(err)
	code := StatusFor(kind)
	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}
	rid := middleware.RequestIDFromContext(r.Context())
	if code >= http.StatusInternalServerError && kind == domain.KindInternal {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Str("request_id", rid).Msg("request failed")
		message = "internal error"
	}
	a.json(w, code, map[string]any{"error": errorBody{
		Code:      string(kind),
		Message:   message,
		SessionID: sessionID,
		RequestID: rid,
	}})
}

// StatusFor is the HTTP status for an error kind.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBadState:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindRemoteProvider,
		domain.KindSchemaViolation,
		domain.KindMalformedOutput,
		domain.KindEmptyOutput,
		domain.KindNoImageReturned:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads an optional JSON body; an empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.WrapError(domain.KindValidation, err, "invalid payload")
	}
	return nil
}
