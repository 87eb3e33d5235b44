package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"receiptsnap/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError maps domain errors to HTTP statuses. Server-side failures get
// a generic message; the diagnostic goes to the log, not the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrUnsupportedMediaType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, common.ErrOCRBackendUnavailable), errors.Is(err, common.ErrOCRNotConfigured):
		s.logError(r, err)
		writeError(w, http.StatusBadGateway, "recognition service unavailable")
	default:
		s.logError(r, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) logError(r *http.Request, err error) {
	s.logger.Error("request failed",
		"request_id", common.RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
}
