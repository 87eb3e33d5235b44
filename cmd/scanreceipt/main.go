package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"receiptsnap/constants"
	"receiptsnap/internal/common"
	"receiptsnap/internal/ocr"
	"receiptsnap/internal/parser"
)

// scanreceipt runs a single image through the OCR chain and the text parser
// and prints the extracted draft as JSON. Useful for tuning heuristics
// against real receipts without the HTTP surface.
func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("scanreceipt")
	var (
		imagePath = fs.StringLong("image", "", "Path to the receipt image")
		backend   = fs.StringLong("backend", "", "Force one backend: clova, gemini or vision (default: full chain)")
		rawOnly   = fs.BoolLong("raw", "Print the recognized text only, skip parsing")
		timeout   = fs.DurationLong("timeout", 60*time.Second, "Overall deadline")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RECEIPTSNAP")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *imagePath == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --image is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := common.LoadConfig()

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		logger.Error("reading image", "error", err)
		os.Exit(1)
	}
	contentType := mime.TypeByExtension(filepath.Ext(*imagePath))
	if !constants.IsAllowedImageType(contentType) {
		logger.Error("unsupported image type", "path", *imagePath, "type", contentType)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	adapter, closeFn, err := buildChain(ctx, cfg.OCR, *backend, logger)
	if err != nil {
		logger.Error("initializing ocr", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	res, err := adapter.Recognize(ctx, data, contentType)
	if err != nil {
		logger.Error("recognition failed", "error", err)
		os.Exit(1)
	}

	if *rawOnly {
		fmt.Println(res.Text)
		return
	}

	fields := parser.New().Parse(res.Text)
	out := map[string]any{
		"store_name":   fields.StoreName,
		"total_amount": fields.TotalAmount,
		"receipt_date": fields.TransactionDate,
		"receipt_time": fields.TransactionTime,
		"confidence":   res.Confidence,
		"hints":        res.Hints,
		"text":         res.Text,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encoding output", "error", err)
		os.Exit(1)
	}
}

func buildChain(ctx context.Context, cfg common.OCRConfig, only string, logger *slog.Logger) (*ocr.Adapter, func(), error) {
	closeFn := func() {}

	newEngine := func(name string) (ocr.Engine, error) {
		switch name {
		case "clova":
			return ocr.NewClova(cfg, logger)
		case "gemini":
			g, err := ocr.NewGemini(ctx, cfg, logger)
			if err == nil {
				closeFn = func() { _ = g.Close() }
			}
			return g, err
		case "vision":
			return ocr.NewVision(cfg, logger)
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}

	if only != "" {
		engine, err := newEngine(only)
		if err != nil {
			return nil, nil, err
		}
		adapter, err := ocr.NewAdapter(logger, engine)
		return adapter, closeFn, err
	}

	var engines []ocr.Engine
	for _, name := range []string{"clova", "gemini", "vision"} {
		engine, err := newEngine(name)
		if err != nil {
			logger.Info("skipping backend", "backend", name, "reason", err)
			continue
		}
		engines = append(engines, engine)
	}
	adapter, err := ocr.NewAdapter(logger, engines...)
	if err != nil {
		return nil, nil, err
	}
	return adapter, closeFn, nil
}
