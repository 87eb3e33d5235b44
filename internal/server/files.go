package server

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"receiptsnap/constants"
)

// handleFile matches GET /files/*. Access is authorized by the URL's own
// signature, which also binds the expiry; there is no session to check.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	objectPath := chi.URLParam(r, "*")
	q := r.URL.Query()

	if err := s.signer.Verify(objectPath, q.Get("exp"), q.Get("sig")); err != nil {
		writeError(w, http.StatusForbidden, "invalid or expired link")
		return
	}

	data, err := s.store.Get(objectPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	w.Header().Set("Content-Type", contentTypeForExt(path.Ext(objectPath)))
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = w.Write(data)
}

func contentTypeForExt(ext string) string {
	switch constants.NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
