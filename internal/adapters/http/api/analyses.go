package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
)

// AnalysisRunner runs one analysis and replaces the latest snapshot.
type AnalysisRunner interface {
	Run(ctx context.Context, primary []model.EventRecord, comparisons []model.Source, maxMinutes int) (service.Snapshot, error)
}

// AnalysesHandler handles POST /analyses.
type AnalysesHandler struct {
	deps         AnalysisRunner
	reader       *ingest.Reader
	maxMinutes   int
	maxBodyBytes int64
	logger       logger.Logger
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps AnalysisRunner, st serverSettings) *AnalysesHandler {
	return &AnalysesHandler{
		deps:         deps,
		reader:       st.reader,
		maxMinutes:   st.maxMinutes,
		maxBodyBytes: st.maxBodyBytes,
		logger:       st.logger,
	}
}

// analysisRequest mirrors the OpenAPI schema for POST /analyses.
type analysisRequest struct {
	MaxMinutes  *int             `json:"max_minutes"`
	Primary     datasetRequest   `json:"primary"`
	Comparisons []datasetRequest `json:"comparisons"`
}

type datasetRequest struct {
	Name    string          `json:"name"`
	Records []recordRequest `json:"records"`
}

type recordRequest struct {
	PersonID   string `json:"person_id"`
	Timestamp  string `json:"timestamp"`
	Direction  string `json:"direction"`
	Checkpoint string `json:"checkpoint"`
}

func (req analysisRequest) validate() error {
	switch {
	case len(req.Primary.Records) == 0:
		return errors.New("primary has no records")
	case len(req.Comparisons) == 0:
		return errors.New("no comparison datasets")
	}
	for i, c := range req.Comparisons {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("comparison %d has no name", i)
		}
	}
	return nil
}

// requestSource parses its records when the analysis loads it, so a bad
// comparison dataset fails alone.
type requestSource struct {
	dataset datasetRequest
	reader  *ingest.Reader
}

func (s requestSource) Name() string { return s.dataset.Name }

func (s requestSource) Records(ctx context.Context) ([]model.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parseRecords(s.reader, s.dataset.Records)
}

func parseRecords(r *ingest.Reader, in []recordRequest) ([]model.EventRecord, error) {
	out := make([]model.EventRecord, 0, len(in))
	for i, rr := range in {
		rec, err := r.ParseRecord(rr.PersonID, rr.Timestamp, rr.Direction, rr.Checkpoint)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// HandlePostAnalysis handles POST /analyses requests. The analysis runs
// synchronously and its snapshot is returned.
func (h *AnalysesHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	primary, err := parseRecords(h.reader, req.Primary.Records)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("primary: %w", err)))
		return
	}

	maxMinutes := h.maxMinutes
	if req.MaxMinutes != nil {
		maxMinutes = *req.MaxMinutes
	}
	sources := make([]model.Source, len(req.Comparisons))
	for i, c := range req.Comparisons {
		sources[i] = requestSource{dataset: c, reader: h.reader}
	}

	snap, err := h.deps.Run(r.Context(), primary, sources, maxMinutes)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, service.ErrInvalidMaxMinutes), errors.Is(err, service.ErrTooManySources):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded", Wrap(op, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", Wrap(op, err))
	default:
		h.logger.Error(r.Context(), "analysis failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
