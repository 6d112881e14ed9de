package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/filter"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

// ResultsDependencies defines the interface for result queries.
type ResultsDependencies interface {
	Latest() (service.Snapshot, error)
	Query(c model.Category, q filter.Query) ([]model.Match, error)
}

// ResultsHandler handles result queries.
type ResultsHandler struct {
	deps ResultsDependencies
	now  func() time.Time
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies, now func() time.Time) *ResultsHandler {
	return &ResultsHandler{deps: deps, now: now}
}

type resultsResponse struct {
	RunID    string         `json:"run_id"`
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
	Matches  []model.Match  `json:"matches"`
}

// HandleGetResults handles GET /results/{category}?q=&band=&checkpoint=&recency=.
func (h *ResultsHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_results"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/results/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	category, err := model.ParseCategory(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	snap, err := h.deps.Latest()
	if err != nil {
		writeLatestError(w, op, err)
		return
	}
	matches, err := h.deps.Query(category, q)
	if err != nil {
		writeLatestError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{
		RunID:    snap.Results.RunID,
		Category: category,
		Count:    len(matches),
		Matches:  matches,
	})
}

func (h *ResultsHandler) parseQuery(r *http.Request) (filter.Query, error) {
	v := r.URL.Query()
	band, err := filter.ParseBand(v.Get("band"))
	if err != nil {
		return filter.Query{}, err
	}
	recency, err := filter.ParseRecency(v.Get("recency"))
	if err != nil {
		return filter.Query{}, err
	}
	return filter.Query{
		Text:       v.Get("q"),
		Band:       band,
		Checkpoint: strings.TrimSpace(v.Get("checkpoint")),
		Recency:    recency,
		Now:        h.now(),
	}, nil
}

// writeLatestError maps read errors of the latest snapshot.
func writeLatestError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrNoResults) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}
