package ocr_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"receiptsnap/internal/common"
	"receiptsnap/internal/ocr"
)

func newVisionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Query().Get("key") == "" {
			t.Error("request is missing the api key parameter")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestVisionRecognize(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantText string
		wantConf float64
		wantErr  bool
	}{
		{
			name:   "full annotation with confidence",
			status: http.StatusOK,
			body: `{"responses":[{"textAnnotations":[
				{"description":"스타벅스 강남점\n합계 12,000","confidence":0.92}
			]}]}`,
			wantText: "스타벅스 강남점\n합계 12,000",
			wantConf: 92,
		},
		{
			name:     "missing confidence falls back to the default",
			status:   http.StatusOK,
			body:     `{"responses":[{"textAnnotations":[{"description":"GS25"}]}]}`,
			wantText: "GS25",
			wantConf: 50,
		},
		{
			name:   "no annotations yields an empty result",
			status: http.StatusOK,
			body:   `{"responses":[{"textAnnotations":[]}]}`,
		},
		{
			name:   "malformed body degrades to an empty result",
			status: http.StatusOK,
			body:   `not json at all`,
		},
		{
			name:    "api error in the envelope",
			status:  http.StatusOK,
			body:    `{"responses":[{"error":{"message":"quota exceeded"}}]}`,
			wantErr: true,
		},
		{
			name:    "non 2xx status",
			status:  http.StatusForbidden,
			body:    `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newVisionServer(t, tt.status, tt.body)
			defer srv.Close()

			engine, err := ocr.NewVision(common.OCRConfig{
				VisionAPIKey:   "test-key",
				VisionEndpoint: srv.URL,
				Timeout:        5 * time.Second,
			}, slog.New(slog.DiscardHandler))
			if err != nil {
				t.Fatalf("NewVision: %v", err)
			}

			res, err := engine.Recognize(context.Background(), []byte("img"), "image/jpeg")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Recognize: %v", err)
			}
			if res.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", res.Text, tt.wantText)
			}
			if res.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", res.Confidence, tt.wantConf)
			}
		})
	}
}

func TestVisionRequiresAPIKey(t *testing.T) {
	_, err := ocr.NewVision(common.OCRConfig{}, nil)
	if err == nil {
		t.Fatal("expected an error for a missing api key")
	}
}

func TestClovaRecognize(t *testing.T) {
	body := `{"images":[{"inferResult":"SUCCESS","fields":[
		{"inferText":"이마트","inferConfidence":0.98,"lineBreak":false},
		{"inferText":"역삼점","inferConfidence":0.96,"lineBreak":true},
		{"inferText":"합계 33,000","inferConfidence":0.94,"lineBreak":true}
	],"receipt":{"result":{
		"storeInfo":{"name":{"text":"이마트 역삼점"}},
		"paymentInfo":{
			"date":{"text":"2024-03-15","formatted":{"year":"2024","month":"3","day":"15"}},
			"time":{"formatted":{"hour":"13","minute":"5","second":"0"}}
		},
		"totalPrice":{"price":{"text":"33,000","formatted":{"value":"33000"}}}
	}}}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-OCR-SECRET") != "test-secret" {
			t.Error("request is missing the ocr secret header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("message") == "" {
			t.Error("request is missing the message part")
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	engine, err := ocr.NewClova(common.OCRConfig{
		ClovaURL:    srv.URL,
		ClovaSecret: "test-secret",
		Timeout:     5 * time.Second,
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewClova: %v", err)
	}

	res, err := engine.Recognize(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if want := "이마트 역삼점\n합계 33,000"; res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	if res.Confidence != 96 {
		t.Errorf("Confidence = %v, want 96", res.Confidence)
	}
	if res.Hints.StoreName == nil || *res.Hints.StoreName != "이마트 역삼점" {
		t.Errorf("StoreName hint = %v, want 이마트 역삼점", res.Hints.StoreName)
	}
	if res.Hints.TotalAmount == nil || *res.Hints.TotalAmount != 33000 {
		t.Errorf("TotalAmount hint = %v, want 33000", res.Hints.TotalAmount)
	}
	if res.Hints.Date == nil || *res.Hints.Date != "2024-03-15" {
		t.Errorf("Date hint = %v, want 2024-03-15", res.Hints.Date)
	}
	if res.Hints.Time == nil || *res.Hints.Time != "13:05:00" {
		t.Errorf("Time hint = %v, want 13:05:00", res.Hints.Time)
	}
}

func TestClovaInferError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"images":[{"inferResult":"ERROR","message":"unsupported image"}]}`))
	}))
	defer srv.Close()

	engine, err := ocr.NewClova(common.OCRConfig{
		ClovaURL:    srv.URL,
		ClovaSecret: "test-secret",
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewClova: %v", err)
	}
	if _, err := engine.Recognize(context.Background(), []byte("img"), "image/png"); err == nil {
		t.Fatal("expected an error for an ERROR infer result")
	}
}
