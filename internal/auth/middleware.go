package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"receiptsnap/internal/common"
)

// Middleware authenticates every request before any handler runs, so an
// unauthenticated call never reaches storage or an OCR backend. The key
// comes from "Authorization: Bearer <key>" or the X-API-Key header.
func Middleware(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractKey(r)
			userID, err := verifier.Verify(key)
			if err != nil {
				logger.Warn("auth.rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
		})
	}
}

func extractKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if key, ok := strings.CutPrefix(h, "Bearer "); ok {
			return key
		}
	}
	return r.Header.Get("X-API-Key")
}
