package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

// Refresher reloads the snapshot on demand
type Refresher interface {
	Refresh(ctx context.Context) (types.SnapshotStatus, error)
}

// RefreshHandler triggers an on-demand reload
type RefreshHandler struct {
	refresher Refresher
	logger    zerolog.Logger
}

// NewRefreshHandler creates a new RefreshHandler
func NewRefreshHandler(refresher Refresher, logger zerolog.Logger) *RefreshHandler {
	return &RefreshHandler{
		refresher: refresher,
		logger:    logger.With().Str("component", "refresh_handler").Logger(),
	}
}

// HandleRefresh reloads the task list from the CRM. A failed fetch still
// replaces the snapshot and is reported as 502 with the resulting status.
// POST /api/refresh
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	status, err := h.refresher.Refresh(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("on-demand refresh failed")
		writeJSONStatus(w, h.logger, http.StatusBadGateway, status)
		return
	}

	h.logger.Info().Int("records", status.Records).Msg("on-demand refresh completed")
	writeJSON(w, h.logger, status)
}
