package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"receiptsnap/internal/common"
)

// Vision is the general-purpose text-detection backend. It returns raw text
// and a confidence score only, with no receipt-aware structure.
type Vision struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewVision(cfg common.OCRConfig, logger *slog.Logger) (*Vision, error) {
	if cfg.VisionAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_VISION_API_KEY missing: %w", common.ErrOCRNotConfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Vision{
		apiKey:     cfg.VisionAPIKey,
		endpoint:   cfg.VisionEndpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (v *Vision) Name() string { return "vision" }

type visionResponse struct {
	Responses []struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		TextAnnotations []struct {
			Description string  `json:"description"`
			Confidence  float64 `json:"confidence"`
		} `json:"textAnnotations"`
	} `json:"responses"`
}

func (v *Vision) Recognize(ctx context.Context, image []byte, contentType string) (Result, error) {
	start := time.Now()

	body := map[string]any{
		"requests": []map[string]any{
			{
				"image": map[string]any{
					"content": base64.StdEncoding.EncodeToString(image),
				},
				"features": []map[string]any{
					{"type": "TEXT_DETECTION", "maxResults": 1},
				},
				"imageContext": map[string]any{
					"languageHints": []string{"ko", "en"},
				},
			},
		},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode vision request: %w", err)
	}

	// The key travels only in the request; logs carry the bare endpoint.
	reqURL := v.endpoint + "?key=" + url.QueryEscape(v.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(bs))
	if err != nil {
		return Result{}, fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	v.logger.Info("ocr.vision.response",
		"endpoint", v.endpoint,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return Result{}, fmt.Errorf("vision status %d", resp.StatusCode)
	}

	var out visionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// Malformed body: degrade to an empty result so the caller can fall
		// back to manual entry.
		v.logger.Warn("ocr.vision.malformed_response", "error", err)
		return Result{}, nil
	}
	if len(out.Responses) == 0 {
		return Result{}, nil
	}
	r := out.Responses[0]
	if r.Error != nil {
		return Result{}, fmt.Errorf("vision api error: %s", r.Error.Message)
	}
	if len(r.TextAnnotations) == 0 {
		return Result{}, nil
	}

	conf := r.TextAnnotations[0].Confidence
	if conf == 0 {
		conf = 0.5
	}
	return Result{
		Text:       r.TextAnnotations[0].Description,
		Confidence: math.Round(conf * 100),
	}, nil
}
