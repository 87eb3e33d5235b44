package server

import (
	"net/http"
	"time"

	"receiptsnap/internal/common"
	"receiptsnap/internal/report"
	"receiptsnap/internal/repository"
)

// handleMonthlyStats matches GET /api/stats/monthly. Without a year it
// covers everything on file; with year (and optionally month) it narrows
// accordingly.
func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	q := r.URL.Query()

	filter, err := periodFilter(q.Get("year"), q.Get("month"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	recs, err := s.repo.List(r.Context(), userID, filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    report.Summarize(recs),
		"months":     report.GroupByMonth(recs),
		"categories": report.GroupByCategory(recs),
	})
}

// handleMonths matches GET /api/stats/months: the distinct months the user
// has receipts in, newest first, for building period pickers.
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())

	recs, err := s.repo.List(r.Context(), userID, repository.ListFilter{})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": report.Months(recs)})
}

// handleExport matches GET /api/receipts/export and streams an XLSX
// workbook for the requested window.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	q := r.URL.Query()

	from, to := q.Get("from"), q.Get("to")
	if from != "" && !reISODate.MatchString(from) {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	if to != "" && !reISODate.MatchString(to) {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	data, err := s.exporter.ExportReceiptsXLSX(r.Context(), userID, from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := "receipts-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
