package ocr_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"receiptsnap/internal/common"
	"receiptsnap/internal/ocr"
)

func TestOCR(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OCR Suite")
}

type stubEngine struct {
	name   string
	result ocr.Result
	err    error
	calls  int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Recognize(_ context.Context, _ []byte, _ string) (ocr.Result, error) {
	s.calls++
	return s.result, s.err
}

var _ = Describe("Adapter", func() {
	var (
		logger  *slog.Logger
		primary *stubEngine
		backup  *stubEngine
	)

	BeforeEach(func() {
		logger = slog.New(slog.DiscardHandler)
		primary = &stubEngine{name: "primary", result: ocr.Result{Text: "primary text", Confidence: 90}}
		backup = &stubEngine{name: "backup", result: ocr.Result{Text: "backup text", Confidence: 40}}
	})

	When("no engine is configured", func() {
		It("fails construction", func() {
			_, err := ocr.NewAdapter(logger)
			Expect(err).To(MatchError(common.ErrOCRNotConfigured))
		})

		It("ignores nil engine slots", func() {
			_, err := ocr.NewAdapter(logger, nil, nil)
			Expect(err).To(MatchError(common.ErrOCRNotConfigured))
		})
	})

	When("the first engine answers", func() {
		It("returns its result without consulting the rest", func() {
			adapter, err := ocr.NewAdapter(logger, primary, backup)
			Expect(err).NotTo(HaveOccurred())

			res, err := adapter.Recognize(context.Background(), []byte("img"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Text).To(Equal("primary text"))
			Expect(res.Confidence).To(Equal(90.0))
			Expect(backup.calls).To(BeZero())
		})
	})

	When("the first engine fails", func() {
		BeforeEach(func() {
			primary.err = errors.New("boom")
		})

		It("falls back to the next engine", func() {
			adapter, err := ocr.NewAdapter(logger, primary, backup)
			Expect(err).NotTo(HaveOccurred())

			res, err := adapter.Recognize(context.Background(), []byte("img"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Text).To(Equal("backup text"))
			Expect(primary.calls).To(Equal(1))
			Expect(backup.calls).To(Equal(1))
		})
	})

	When("every engine fails", func() {
		BeforeEach(func() {
			primary.err = errors.New("boom")
			backup.err = errors.New("bust")
		})

		It("reports the backend chain as unavailable", func() {
			adapter, err := ocr.NewAdapter(logger, primary, backup)
			Expect(err).NotTo(HaveOccurred())

			_, err = adapter.Recognize(context.Background(), []byte("img"), "image/jpeg")
			Expect(err).To(MatchError(common.ErrOCRBackendUnavailable))
			Expect(err.Error()).To(ContainSubstring("bust"))
		})
	})

	When("an engine supplies structured hints", func() {
		It("passes them through untouched", func() {
			store := "GS25"
			amount := int64(4500)
			primary.result.Hints = ocr.Hints{StoreName: &store, TotalAmount: &amount}

			adapter, err := ocr.NewAdapter(logger, primary)
			Expect(err).NotTo(HaveOccurred())

			res, err := adapter.Recognize(context.Background(), []byte("img"), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Hints.StoreName).To(HaveValue(Equal("GS25")))
			Expect(res.Hints.TotalAmount).To(HaveValue(Equal(int64(4500))))
		})
	})
})

var _ = Describe("Hint schema", func() {
	It("accepts a well formed hint set", func() {
		payload := []byte(`{"store_name":"스타벅스","total_amount":12000,"date":"2024-03-15","time":"13:45:00"}`)
		Expect(ocr.ValidateJSONAgainstSchema(ocr.BuildHintSchema(), payload)).To(Succeed())
	})

	It("accepts a partial hint set", func() {
		payload := []byte(`{"total_amount":500}`)
		Expect(ocr.ValidateJSONAgainstSchema(ocr.BuildHintSchema(), payload)).To(Succeed())
	})

	It("rejects a malformed date", func() {
		payload := []byte(`{"date":"15/03/2024"}`)
		Expect(ocr.ValidateJSONAgainstSchema(ocr.BuildHintSchema(), payload)).NotTo(Succeed())
	})

	It("rejects a negative amount", func() {
		payload := []byte(`{"total_amount":-1}`)
		Expect(ocr.ValidateJSONAgainstSchema(ocr.BuildHintSchema(), payload)).NotTo(Succeed())
	})

	It("rejects unknown fields", func() {
		payload := []byte(`{"card_number":"1234"}`)
		Expect(ocr.ValidateJSONAgainstSchema(ocr.BuildHintSchema(), payload)).NotTo(Succeed())
	})
})
