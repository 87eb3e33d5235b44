package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"receiptsnap/internal/auth"
	"receiptsnap/internal/common"
	"receiptsnap/internal/export"
	"receiptsnap/internal/pipeline"
	"receiptsnap/internal/repository"
	"receiptsnap/internal/storage"
)

// Scanner is the slice of the pipeline the HTTP layer needs.
type Scanner interface {
	ProcessUpload(ctx context.Context, userID uuid.UUID, contentType string, data []byte) (*pipeline.ScanResult, error)
}

// Server wires repositories, the capture pipeline, and the exporter into
// HTTP handlers.
type Server struct {
	repo           repository.ReceiptRepository
	scanner        Scanner
	exporter       *export.Service
	store          storage.ObjectStore
	signer         *storage.Signer
	logger         *slog.Logger
	maxUploadBytes int64
}

func New(repo repository.ReceiptRepository, scanner Scanner, exporter *export.Service,
	store storage.ObjectStore, signer *storage.Signer, maxUploadBytes int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		repo:           repo,
		scanner:        scanner,
		exporter:       exporter,
		store:          store,
		signer:         signer,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Router builds the route tree. Everything under /api requires a verified
// caller; signed file URLs carry their own authorization.
func (s *Server) Router(verifier auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/files/*", s.handleFile)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(verifier, s.logger))

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/scan", s.handleScan)
			r.Post("/", s.handleCreate)
			r.Get("/", s.handleList)
			r.Get("/search", s.handleSearch)
			r.Get("/categories", s.handleCategories)
			r.Get("/export", s.handleExport)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Patch("/", s.handlePatch)
				r.Delete("/", s.handleDelete)
			})
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/monthly", s.handleMonthlyStats)
			r.Get("/months", s.handleMonths)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestID tags every request with an id that error logs carry.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	})
}
