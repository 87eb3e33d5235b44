package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"receiptsnap/constants"
	"receiptsnap/internal/common"
	"receiptsnap/internal/ocr"
	"receiptsnap/internal/parser"
	"receiptsnap/internal/storage"
)

// Recognizer is the slice of the OCR adapter the pipeline needs.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (ocr.Result, error)
}

// URLSigner issues short-lived URLs for stored images.
type URLSigner interface {
	Sign(path string) string
}

// ScanResult is what a caller gets back from a scan: the stored image
// reference plus the extracted draft fields, ready for user review. Nothing
// is persisted yet.
type ScanResult struct {
	ImagePath   string  `json:"image_path"`
	ImageURL    string  `json:"image_url"`
	StoreName   *string `json:"store_name,omitempty"`
	TotalAmount *int64  `json:"total_amount,omitempty"`
	ReceiptDate *string `json:"receipt_date,omitempty"`
	ReceiptTime *string `json:"receipt_time,omitempty"`
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
}

// Processor runs the capture flow: validate, store, recognize, parse, merge.
type Processor struct {
	store  storage.ObjectStore
	signer URLSigner
	ocr    Recognizer
	parser *parser.Parser
	logger *slog.Logger
}

func NewProcessor(store storage.ObjectStore, signer URLSigner, recognizer Recognizer, p *parser.Parser, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if p == nil {
		p = parser.New()
	}
	return &Processor{
		store:  store,
		signer: signer,
		ocr:    recognizer,
		parser: p,
		logger: logger,
	}
}

// ProcessUpload validates and stores the image, runs OCR and the text
// parser, and merges backend hints over the parse. The image is persisted
// before OCR so a backend outage never loses the upload. Storage failures
// are not retried.
func (p *Processor) ProcessUpload(ctx context.Context, userID uuid.UUID, contentType string, data []byte) (*ScanResult, error) {
	if !constants.IsAllowedImageType(contentType) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedMediaType, contentType)
	}

	path := storage.UploadPath(userID, contentType)
	if err := p.store.Put(path, data); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageWriteFailed, err)
	}
	p.logger.Info("pipeline.image.stored", "user_id", userID, "path", path, "bytes", len(data))

	res, err := p.ocr.Recognize(ctx, data, contentType)
	if err != nil {
		return nil, err
	}

	fields := p.parser.Parse(res.Text)
	merged := mergeHints(fields, res.Hints)

	return &ScanResult{
		ImagePath:   path,
		ImageURL:    p.signer.Sign(path),
		StoreName:   merged.StoreName,
		TotalAmount: merged.TotalAmount,
		ReceiptDate: merged.TransactionDate,
		ReceiptTime: merged.TransactionTime,
		Text:        res.Text,
		Confidence:  res.Confidence,
	}, nil
}

// mergeHints resolves each field independently: a validated backend hint
// beats the text heuristic, and the heuristic fills whatever the backend
// left blank.
func mergeHints(fields parser.Fields, hints ocr.Hints) parser.Fields {
	if hints.StoreName != nil {
		fields.StoreName = hints.StoreName
	}
	if hints.TotalAmount != nil {
		fields.TotalAmount = hints.TotalAmount
	}
	if hints.Date != nil {
		fields.TransactionDate = hints.Date
	}
	if hints.Time != nil {
		fields.TransactionTime = hints.Time
	}
	return fields
}
