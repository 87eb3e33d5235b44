package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"receiptsnap/constants"
	"receiptsnap/internal/common"
)

const geminiPrompt = `You are a receipt reader. Extract information from the receipt image
and respond with ONLY a JSON object, no markdown, no commentary:
{
  "store_name": "store name or null",
  "total_amount": total paid as an integer in the smallest currency unit, or null,
  "date": "YYYY-MM-DD or null",
  "time": "HH:MM:SS or null",
  "raw_text": "all text visible on the receipt, line by line"
}
The receipt may be in Korean or English. Use null for anything you cannot read.`

// Gemini is an alternative receipt-specialized backend that asks a
// multimodal model for structured fields alongside the raw text.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

func NewGemini(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY missing: %w", common.ErrOCRNotConfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	modelName := cfg.GeminiModel
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
		logger: logger,
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

type geminiReceipt struct {
	StoreName   *string `json:"store_name"`
	TotalAmount *int64  `json:"total_amount"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	RawText     string  `json:"raw_text"`
}

func (g *Gemini) Recognize(ctx context.Context, image []byte, contentType string) (Result, error) {
	start := time.Now()

	// genai.ImageData wants the MIME subtype ("jpeg"), not a file extension.
	format := constants.ExtForType(contentType)
	if format == "jpg" {
		format = "jpeg"
	}
	parts := []genai.Part{
		genai.ImageData(format, image),
		genai.Text(geminiPrompt),
	}
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return Result{}, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(responseText.String())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	g.logger.Info("ocr.gemini.response",
		"bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	var receipt geminiReceipt
	if err := json.Unmarshal([]byte(text), &receipt); err != nil {
		g.logger.Warn("ocr.gemini.malformed_response", "error", err)
		return Result{}, nil
	}

	hints := Hints{
		StoreName:   receipt.StoreName,
		TotalAmount: receipt.TotalAmount,
		Date:        receipt.Date,
		Time:        receipt.Time,
	}
	return Result{
		Text:       receipt.RawText,
		Confidence: DefaultConfidence,
		Hints:      sanitizeHints(hints, g.Name(), g.logger),
	}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
