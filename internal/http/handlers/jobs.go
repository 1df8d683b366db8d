package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"saun/internal/domain"
	"saun/internal/events"
	"saun/internal/session"
)

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, session.NewJobView(job))
}

// JobEvents streams job transitions over a websocket. The current state is
// sent first; the socket closes after a terminal status.
func (a *App) JobEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Hub.ServeJob(w, r, id, func() (events.Event, error) {
		job, err := a.Jobs.GetJob(r.Context(), id)
		if err != nil {
			return events.Event{}, err
		}
		return events.Event{
			JobID:     job.ID,
			SessionID: job.SessionID,
			Status:    job.Status,
			Images:    job.ResultImageURLs,
			Error:     job.ErrorMessage,
			At:        job.UpdatedAt,
		}, nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Warn().Err(err).Str("job_id", id).Msg("job events")
		}
		a.fail(w, r, err)
	}
}
