package http

import (
	"net/http"

	"financas/internal/log"
)

// handleAnalysis serves the category/month breakdown and monthly balances.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	p, err := ParseAnalysisParams(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	ctx, cancel := s.reportContext(r)
	defer cancel()

	a, err := s.svc.Reports.Analysis(ctx, p)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	log.FromContext(ctx).DebugContext(ctx, "Analysis computed",
		log.FieldOperation, log.OpAnalyze, log.FieldMonth, p.Month)
	OK(w, a)
}

// handleProjection serves the year projection with alerts and goal progress.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	q, err := ParseProjectionQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	ctx, cancel := s.reportContext(r)
	defer cancel()

	p, err := s.svc.Reports.Projection(ctx, q.Year, q.Months)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	log.FromContext(ctx).DebugContext(ctx, "Projection computed",
		log.FieldOperation, log.OpProject, log.FieldYear, q.Year, "meses", q.Months)
	OK(w, p)
}

// handleDashboard serves the dashboard snapshot for a month or all time.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := ParseDashboardParams(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	ctx, cancel := s.reportContext(r)
	defer cancel()

	d, err := s.svc.Reports.Dashboard(ctx, p)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	log.FromContext(ctx).DebugContext(ctx, "Dashboard computed", log.FieldPeriod, p.Label())
	OK(w, d)
}
