package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"receiptsnap/internal/auth"
	"receiptsnap/internal/common"
	"receiptsnap/internal/export"
	"receiptsnap/internal/ocr"
	"receiptsnap/internal/parser"
	"receiptsnap/internal/pipeline"
	"receiptsnap/internal/repository"
	"receiptsnap/internal/server"
	"receiptsnap/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.Migrate(ctx); err != nil {
		logger.Error("applying migrations", "error", err)
		os.Exit(1)
	}
	if err := db.HealthCheck(ctx, cfg.Database.HealthTimeout); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "driver", cfg.Database.Driver)

	store, err := storage.NewLocalStore(cfg.Storage.BaseDir)
	if err != nil {
		logger.Error("initializing object store", "error", err)
		os.Exit(1)
	}
	signer := storage.NewSigner(cfg.Storage.SignSecret, cfg.Storage.SignTTL)

	adapter, closeOCR, err := buildOCR(ctx, cfg.OCR, logger)
	if err != nil {
		logger.Error("initializing ocr backends", "error", err)
		os.Exit(1)
	}
	defer closeOCR()

	verifier, err := auth.NewStaticKeyVerifier(cfg.Auth.APIKeys)
	if err != nil {
		logger.Error("loading api key table", "error", err)
		os.Exit(1)
	}

	repo := repository.NewReceiptRepository(db.SQL, logger)
	proc := pipeline.NewProcessor(store, signer, adapter, parser.New(), logger)
	exporter := export.NewService(repo, logger)
	srv := server.New(repo, proc, exporter, store, signer, cfg.Server.MaxUploadBytes, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(verifier),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}

// buildOCR assembles the backend chain: receipt-specialized engines first,
// general text detection last. A missing credential skips that engine; the
// adapter itself refuses to start with none at all.
func buildOCR(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger) (*ocr.Adapter, func(), error) {
	var engines []ocr.Engine
	closeFn := func() {}

	clova, err := ocr.NewClova(cfg, logger)
	switch {
	case err == nil:
		engines = append(engines, clova)
	case errors.Is(err, common.ErrOCRNotConfigured):
		logger.Info("ocr backend not configured, skipping", "backend", "clova")
	default:
		return nil, nil, err
	}

	gemini, err := ocr.NewGemini(ctx, cfg, logger)
	switch {
	case err == nil:
		engines = append(engines, gemini)
		closeFn = func() { _ = gemini.Close() }
	case errors.Is(err, common.ErrOCRNotConfigured):
		logger.Info("ocr backend not configured, skipping", "backend", "gemini")
	default:
		return nil, nil, err
	}

	vision, err := ocr.NewVision(cfg, logger)
	switch {
	case err == nil:
		engines = append(engines, vision)
	case errors.Is(err, common.ErrOCRNotConfigured):
		logger.Info("ocr backend not configured, skipping", "backend", "vision")
	default:
		return nil, nil, err
	}

	adapter, err := ocr.NewAdapter(logger, engines...)
	if err != nil {
		return nil, nil, err
	}
	return adapter, closeFn, nil
}
