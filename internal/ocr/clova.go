package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"receiptsnap/constants"
	"receiptsnap/internal/common"
)

// Clova is the receipt-specialized backend. Requests are a multipart form
// with a JSON "message" part plus the image; responses carry both recognized
// text fields and the backend's own best-guess receipt structure, which is
// surfaced as advisory hints.
type Clova struct {
	url        string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClova(cfg common.OCRConfig, logger *slog.Logger) (*Clova, error) {
	if cfg.ClovaURL == "" || cfg.ClovaSecret == "" {
		return nil, fmt.Errorf("CLOVA_OCR_URL/CLOVA_OCR_SECRET missing: %w", common.ErrOCRNotConfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Clova{
		url:        cfg.ClovaURL,
		secret:     cfg.ClovaSecret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (c *Clova) Name() string { return "clova" }

type clovaText struct {
	Text      string `json:"text"`
	Formatted *struct {
		Value string `json:"value"`
	} `json:"formatted"`
}

type clovaDate struct {
	Text      string `json:"text"`
	Formatted *struct {
		Year  string `json:"year"`
		Month string `json:"month"`
		Day   string `json:"day"`
	} `json:"formatted"`
}

type clovaTime struct {
	Formatted *struct {
		Hour   string `json:"hour"`
		Minute string `json:"minute"`
		Second string `json:"second"`
	} `json:"formatted"`
}

type clovaField struct {
	InferText       string  `json:"inferText"`
	InferConfidence float64 `json:"inferConfidence"`
	LineBreak       bool    `json:"lineBreak"`
}

type clovaReceiptResult struct {
	StoreInfo *struct {
		Name *clovaText `json:"name"`
	} `json:"storeInfo"`
	PaymentInfo *struct {
		Date *clovaDate `json:"date"`
		Time *clovaTime `json:"time"`
	} `json:"paymentInfo"`
	TotalPrice *struct {
		Price *clovaText `json:"price"`
	} `json:"totalPrice"`
}

type clovaResponse struct {
	Images []struct {
		InferResult string       `json:"inferResult"`
		Message     string       `json:"message"`
		Fields      []clovaField `json:"fields"`
		Receipt     *struct {
			Result clovaReceiptResult `json:"result"`
		} `json:"receipt"`
	} `json:"images"`
}

func (c *Clova) Recognize(ctx context.Context, image []byte, contentType string) (Result, error) {
	start := time.Now()

	message := map[string]any{
		"version":   "V2",
		"requestId": uuid.New().String(),
		"timestamp": time.Now().UnixMilli(),
		"images": []map[string]any{
			{"format": constants.ExtForType(contentType), "name": "receipt"},
		},
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return Result{}, fmt.Errorf("encode clova message: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("message", string(msgBytes)); err != nil {
		return Result{}, fmt.Errorf("write message part: %w", err)
	}
	fw, err := mw.CreateFormFile("file", "receipt."+constants.ExtForType(contentType))
	if err != nil {
		return Result{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return Result{}, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("build clova request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-OCR-SECRET", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("clova request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Info("ocr.clova.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return Result{}, fmt.Errorf("clova status %d", resp.StatusCode)
	}

	var out clovaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("ocr.clova.malformed_response", "error", err)
		return Result{}, nil
	}
	if len(out.Images) == 0 {
		return Result{}, nil
	}
	img := out.Images[0]
	if img.InferResult == "ERROR" {
		return Result{}, fmt.Errorf("clova infer error: %s", img.Message)
	}

	res := Result{
		Text:       joinFields(img.Fields),
		Confidence: fieldConfidence(img.Fields),
	}
	if img.Receipt != nil {
		res.Hints = sanitizeHints(extractClovaHints(img.Receipt.Result), c.Name(), c.logger)
	}
	return res, nil
}

func joinFields(fields []clovaField) string {
	var b strings.Builder
	for i, f := range fields {
		b.WriteString(f.InferText)
		if i == len(fields)-1 {
			break
		}
		if f.LineBreak {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func fieldConfidence(fields []clovaField) float64 {
	if len(fields) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fields {
		sum += f.InferConfidence
	}
	return math.Round(sum / float64(len(fields)) * 100)
}

func extractClovaHints(result clovaReceiptResult) Hints {
	var h Hints
	if result.StoreInfo != nil && result.StoreInfo.Name != nil {
		if name := strings.TrimSpace(result.StoreInfo.Name.Text); name != "" {
			h.StoreName = &name
		}
	}
	if result.TotalPrice != nil && result.TotalPrice.Price != nil {
		if v, ok := parsePrice(result.TotalPrice.Price); ok {
			h.TotalAmount = &v
		}
	}
	if result.PaymentInfo != nil {
		if d := result.PaymentInfo.Date; d != nil && d.Formatted != nil {
			date := fmt.Sprintf("%s-%s-%s",
				pad(d.Formatted.Year, 4), pad(d.Formatted.Month, 2), pad(d.Formatted.Day, 2))
			if len(date) == 10 {
				h.Date = &date
			}
		}
		if t := result.PaymentInfo.Time; t != nil && t.Formatted != nil {
			clock := fmt.Sprintf("%s:%s:%s",
				pad(t.Formatted.Hour, 2), pad(t.Formatted.Minute, 2), pad(t.Formatted.Second, 2))
			if len(clock) == 8 {
				h.Time = &clock
			}
		}
	}
	return h
}

func parsePrice(p *clovaText) (int64, bool) {
	src := ""
	if p.Formatted != nil {
		src = p.Formatted.Value
	}
	if src == "" {
		src = p.Text
	}
	var digits strings.Builder
	for _, r := range src {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func pad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
