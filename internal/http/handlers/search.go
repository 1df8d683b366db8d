package handlers

import (
	"net/http"
	"strings"

	"saun/internal/domain"
	"saun/internal/search"
)

const defaultSearchMaxItems = 10

type batchSearchRequest struct {
	Queries  []string `json:"queries"`
	MaxItems int      `json:"max_items"`
}

func (a *App) SearchOne(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		a.error(w, r, http.StatusBadRequest, domain.KindValidation, "q is required")
		return
	}
	a.json(w, http.StatusOK, a.Search.SingleSearch(r.Context(), q))
}

func (a *App) SearchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if len(req.Queries) == 0 {
		a.error(w, r, http.StatusBadRequest, domain.KindValidation, "queries must not be empty")
		return
	}
	limit := a.SearchMaxItems
	if limit <= 0 {
		limit = defaultSearchMaxItems
	}
	maxItems := req.MaxItems
	if maxItems <= 0 || maxItems > limit {
		maxItems = limit
	}
	concurrency := a.SearchConcurrency
	if concurrency <= 0 {
		concurrency = search.HardConcurrencyCap
	}
	results, err := a.Search.BatchSearch(r.Context(), req.Queries, maxItems, concurrency)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"results": results})
}
