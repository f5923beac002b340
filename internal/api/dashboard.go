package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/salesboard/internal/aggregator"
	"github.com/dennisdiepolder/salesboard/internal/cache"
	"github.com/dennisdiepolder/salesboard/internal/types"
)

// TasksResponse is the filtered task table
type TasksResponse struct {
	Status  types.SnapshotStatus         `json:"status"`
	Columns []string                     `json:"columns"`
	Records []types.NormalizedTaskRecord `json:"records"`
}

// DashboardHandler serves the dashboard views of the current snapshot
type DashboardHandler struct {
	store  *cache.SnapshotStore
	logger zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(store *cache.SnapshotStore, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:  store,
		logger: logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// view returns the current snapshot and the records visible to the request
// after filtering. ok is false when a response has already been written.
func (h *DashboardHandler) view(w http.ResponseWriter, r *http.Request) (*cache.Snapshot, []types.NormalizedTaskRecord, bool) {
	f, err := ParseFilter(r)
	if err != nil {
		h.logger.Debug().Err(err).Str("query", r.URL.RawQuery).Msg("invalid filter")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	snap := h.store.Current()
	return snap, aggregator.Apply(visibleRecords(r, snap.Records), f), true
}

// GetTasks returns the filtered records
// GET /api/tasks
func (h *DashboardHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	snap, records, ok := h.view(w, r)
	if !ok {
		return
	}

	columns := append([]string{}, types.FixedColumns...)
	columns = append(columns, snap.Schema.Keys()...)

	writeJSON(w, h.logger, TasksResponse{
		Status:  snap.Status(),
		Columns: columns,
		Records: records,
	})
}

// GetSummary returns the headline counters
// GET /api/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	_, records, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, aggregator.Summarize(records))
}

// GetStatusBySales returns task counts per status and assignee
// GET /api/charts/status-by-sales
func (h *DashboardHandler) GetStatusBySales(w http.ResponseWriter, r *http.Request) {
	_, records, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, aggregator.CountByStatusAndSales(records))
}

// GetDaily returns task counts per day and status
// GET /api/charts/daily
func (h *DashboardHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	_, records, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, aggregator.CountDaily(records))
}

// GetPivots returns the pivot of every report stage
// GET /api/pivots
func (h *DashboardHandler) GetPivots(w http.ResponseWriter, r *http.Request) {
	_, records, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, aggregator.PivotReportStages(records))
}

// GetPivot returns the pivot of one conversion stage
// GET /api/pivots/{stage}
func (h *DashboardHandler) GetPivot(w http.ResponseWriter, r *http.Request) {
	stage, err := url.PathUnescape(chi.URLParam(r, "stage"))
	if err != nil || !types.IsConversionStage(stage) {
		http.Error(w, "unknown stage", http.StatusNotFound)
		return
	}

	_, records, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, aggregator.PivotByStage(records, stage))
}

// GetOptions returns the filter choices for the current snapshot
// GET /api/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	writeJSON(w, h.logger, aggregator.BuildOptions(visibleRecords(r, snap.Records)))
}

// GetStatus returns how and when the current snapshot was loaded
// GET /api/status
func (h *DashboardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, h.store.Current().Status())
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, v any) {
	writeJSONStatus(w, logger, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, logger zerolog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}
