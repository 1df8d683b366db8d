package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"saun/internal/domain"
	"saun/internal/imageconv"
)

type analyzeResponse struct {
	Data *domain.PhotoAnalysis `json:"data"`
}

// AnalyzePhoto runs the one-shot analysis on an uploaded image without
// creating a session. Oversized uploads get 413 here, unlike session uploads.
func (a *App) AnalyzePhoto(w http.ResponseWriter, r *http.Request) {
	data, err := a.readImage(w, r)
	if errors.Is(err, errImageTooLarge) {
		a.error(w, r, http.StatusRequestEntityTooLarge, domain.KindValidation,
			fmt.Sprintf("image too large, max size is %d bytes", a.Sessions.MaxBytes()))
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	mime := imageconv.DetectMIME(data)
	if !strings.HasPrefix(mime, "image/") {
		a.error(w, r, http.StatusBadRequest, domain.KindValidation, "unsupported image")
		return
	}
	analysis, err := a.Rating.Analyze(r.Context(), data, mime, r.FormValue("prompt"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, analyzeResponse{Data: analysis})
}
