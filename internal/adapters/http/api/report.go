package api

import (
	"context"
	"net/http"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/network"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/stats"
)

// StatsProvider exposes run counters of the service.
type StatsProvider interface {
	GetStats() map[string]any
}

// ReportDependencies defines the interface for aggregate views.
type ReportDependencies interface {
	StatsProvider
	Summary() (stats.Summary, error)
	Network(ctx context.Context) (network.Network, error)
}

// ReportHandler serves run counters, the summary and the association
// network.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleSummary handles GET /summary requests.
func (h *ReportHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sum, err := h.deps.Summary()
	if err != nil {
		writeLatestError(w, "api.get_summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleNetwork handles GET /network requests.
func (h *ReportHandler) HandleNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	net, err := h.deps.Network(r.Context())
	if err != nil {
		writeLatestError(w, "api.get_network", err)
		return
	}
	writeJSON(w, http.StatusOK, net)
}

// HandleStats handles GET /stats requests. It answers with the run counters
// even before the first analysis.
func (h *ReportHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.GetStats())
}
