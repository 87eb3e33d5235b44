package ocr

import (
	"context"
)

// DefaultConfidence is used when a backend answers without a usable
// confidence score of its own.
const DefaultConfidence = 50

// Hints are backend-supplied, unverified guesses at structured fields.
// They are advisory only: the caller decides precedence against the
// independent text parser.
type Hints struct {
	StoreName   *string `json:"store_name,omitempty"`
	TotalAmount *int64  `json:"total_amount,omitempty"`
	Date        *string `json:"date,omitempty"`
	Time        *string `json:"time,omitempty"`
}

// Result is the normalized OCR outcome, identical regardless of which
// backend answered. Confidence is on a 0-100 scale.
type Result struct {
	Text       string
	Confidence float64
	Hints      Hints
}

// Engine is one OCR backend: image bytes in, normalized Result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, contentType string) (Result, error)
}
