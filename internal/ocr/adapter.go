package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"receiptsnap/internal/common"
)

// Adapter fronts the configured OCR backends. Engines are tried in order
// (receipt-specialized first, general text detection as fallback); the first
// successful answer wins. Construction fails when no backend is configured so
// the condition surfaces at startup, not on the first upload.
type Adapter struct {
	engines []Engine
	logger  *slog.Logger
}

func NewAdapter(logger *slog.Logger, engines ...Engine) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var active []Engine
	for _, e := range engines {
		if e != nil {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("no ocr backend available: %w", common.ErrOCRNotConfigured)
	}
	return &Adapter{engines: active, logger: logger}, nil
}

// Recognize submits the image to the backend chain. A backend failure is
// logged and the next backend is tried; when every backend fails the error
// wraps ErrOCRBackendUnavailable with the last cause. Retrying is the
// caller's business, not the adapter's.
func (a *Adapter) Recognize(ctx context.Context, image []byte, contentType string) (Result, error) {
	var lastErr error
	for _, e := range a.engines {
		res, err := e.Recognize(ctx, image, contentType)
		if err != nil {
			a.logger.Warn("ocr.backend.failed", "backend", e.Name(), "error", err)
			lastErr = err
			continue
		}
		a.logger.Info("ocr.backend.ok",
			"backend", e.Name(),
			"text_bytes", len(res.Text),
			"confidence", res.Confidence,
		)
		return res, nil
	}
	return Result{}, fmt.Errorf("%w: %v", common.ErrOCRBackendUnavailable, lastErr)
}
