package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/dennisdiepolder/salesboard/internal/auth"
)

// Mount registers the dashboard endpoints under /api. Authentication is the
// caller's concern; the refresh endpoint additionally requires a manager or
// admin.
func Mount(r chi.Router, dashboard *DashboardHandler, refresh *RefreshHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", dashboard.GetTasks)
		r.Get("/summary", dashboard.GetSummary)
		r.Get("/charts/status-by-sales", dashboard.GetStatusBySales)
		r.Get("/charts/daily", dashboard.GetDaily)
		r.Get("/pivots", dashboard.GetPivots)
		r.Get("/pivots/{stage}", dashboard.GetPivot)
		r.Get("/options", dashboard.GetOptions)
		r.Get("/status", dashboard.GetStatus)

		r.With(auth.RequireManagerOrAdmin).Post("/refresh", refresh.HandleRefresh)
	})
}
