package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"saun/internal/domain"
	"saun/internal/generation"
)

const multipartMemory = 8 << 20

var errImageTooLarge = errors.New("image too large")

type createSessionResponse struct {
	SessionID        string         `json:"session_id"`
	Status           string         `json:"status"`
	OriginalImageURL string         `json:"original_image_url"`
	RatingResult     *domain.Rating `json:"rating_result"`
}

type rateRequest struct {
	Categories []string `json:"categories"`
}

type rateResponse struct {
	SessionID    string         `json:"session_id"`
	Status       string         `json:"status"`
	RatingResult *domain.Rating `json:"rating_result"`
}

type enqueueResponse struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// CreateSession accepts a multipart upload and, unless auto_rate=false, rates
// it straight away. A failed rating still leaves the session in place and its
// id is returned with the error.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	data, err := a.readImage(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	autoRate := true
	if raw := strings.TrimSpace(r.FormValue("auto_rate")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			a.error(w, r, http.StatusBadRequest, domain.KindValidation, "auto_rate must be a boolean")
			return
		}
		autoRate = parsed
	}

	sess, err := a.Sessions.Create(r.Context(), data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := createSessionResponse{SessionID: sess.ID, Status: string(sess.Status), OriginalImageURL: sess.OriginalImageURL}
	if autoRate {
		rating, err := a.Rating.Rate(r.Context(), sess.ID, nil)
		if err != nil {
			a.failSession(w, r, sess.ID, err)
			return
		}
		resp.Status = string(domain.SessionStatusRated)
		resp.RatingResult = rating
	}
	a.json(w, http.StatusCreated, resp)
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := a.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, view)
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SessionArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	archive, err := a.Sessions.Archive(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.zip", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) RateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	rating, err := a.Rating.Rate(r.Context(), id, req.Categories)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rateResponse{SessionID: id, Status: string(domain.SessionStatusRated), RatingResult: rating})
}

func (a *App) GenerateEdits(w http.ResponseWriter, r *http.Request) {
	var req generation.GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	job, err := a.Generation.Enqueue(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, enqueueResponse{JobID: job.ID, SessionID: job.SessionID, Status: string(job.Status)})
}

// readImage pulls the "image" part out of a multipart body, bounded by the
// upload limit.
func (a *App) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := a.Sessions.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.WrapError(domain.KindValidation, errImageTooLarge, "image exceeds %d bytes", limit)
		}
		return nil, domain.WrapError(domain.KindValidation, err, "expected multipart form with an image field")
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "image is required")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "read image")
	}
	if int64(len(data)) > limit {
		return nil, domain.WrapError(domain.KindValidation, errImageTooLarge, "image exceeds %d bytes", limit)
	}
	return data, nil
}
