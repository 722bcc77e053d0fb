package http

import (
	"net/http"

	"budget/internal/core"
	"budget/internal/log"
)

// dashboard loads the panel for the month and sort order in r's query. A
// store failure is logged and rendered as an error panel.
func (s *Server) dashboard(r *http.Request) (core.Dashboard, dashboardPanel, bool) {
	ctx := r.Context()
	query := r.URL.Query()
	month := ParseMonthParam(query)
	sp := ParseSortParams(query)

	d, err := s.ledger.Dashboard(ctx, month)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentDashboard).ErrorContext(ctx, "Dashboard load failed",
			log.FieldOperation, log.OpLoad,
			log.FieldMonth, query.Get("month"),
			log.FieldError, err)
		return d, dashboardPanel{Error: "Could not load your ledger. Please try again."}, false
	}
	return d, newDashboardPanel(d, sp), true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	_, panel, ok := s.dashboard(r)
	b := NewHTMXResponse()
	if !ok {
		b = BadGatewayError(panel.Error)
	}
	s.render(w, r, b, "dashboard", dashboardView{
		page:  s.page(r, "Dashboard", "dashboard"),
		Panel: panel,
	})
}

// handleDashboardPanel renders only the panel, for month and sort changes.
func (s *Server) handleDashboardPanel(w http.ResponseWriter, r *http.Request) {
	_, panel, ok := s.dashboard(r)
	b := NewHTMXResponse()
	if !ok {
		b = BadGatewayError(panel.Error)
	}
	s.render(w, r, b, "dashboard_panel", panel)
}

// handleBreakdown serves the selected month's category totals for the chart.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	d, _, ok := s.dashboard(r)
	if !ok {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ledger unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, newBreakdownChart(d))
}
