package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"receiptsnap/internal/common"
	"receiptsnap/internal/ocr"
	"receiptsnap/internal/parser"
	"receiptsnap/internal/pipeline"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

type memStore struct {
	objects map[string][]byte
	putErr  error
}

func (m *memStore) Put(path string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[path] = data
	return nil
}

func (m *memStore) Get(path string) ([]byte, error) { return m.objects[path], nil }
func (m *memStore) Delete(path string) error        { delete(m.objects, path); return nil }

type stubSigner struct{}

func (stubSigner) Sign(path string) string { return "/files/" + path + "?exp=1&sig=test" }

type stubRecognizer struct {
	result ocr.Result
	err    error
	calls  int
}

func (s *stubRecognizer) Recognize(_ context.Context, _ []byte, _ string) (ocr.Result, error) {
	s.calls++
	return s.result, s.err
}

var _ = Describe("Processor", func() {
	var (
		store      *memStore
		recognizer *stubRecognizer
		proc       *pipeline.Processor
		userID     uuid.UUID
	)

	fixedClock := func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	BeforeEach(func() {
		store = &memStore{}
		recognizer = &stubRecognizer{}
		userID = uuid.New()
		proc = pipeline.NewProcessor(store, stubSigner{}, recognizer,
			parser.NewWithClock(fixedClock), slog.New(slog.DiscardHandler))
	})

	When("the media type is not allowed", func() {
		It("rejects before storing or recognizing", func() {
			_, err := proc.ProcessUpload(context.Background(), userID, "application/pdf", []byte("x"))
			Expect(err).To(MatchError(common.ErrUnsupportedMediaType))
			Expect(store.objects).To(BeEmpty())
			Expect(recognizer.calls).To(BeZero())
		})
	})

	When("the object store rejects the write", func() {
		BeforeEach(func() {
			store.putErr = errors.New("disk full")
		})

		It("fails without retrying and without calling ocr", func() {
			_, err := proc.ProcessUpload(context.Background(), userID, "image/jpeg", []byte("x"))
			Expect(err).To(MatchError(common.ErrStorageWriteFailed))
			Expect(err.Error()).To(ContainSubstring("disk full"))
			Expect(recognizer.calls).To(BeZero())
		})
	})

	When("ocr returns plain text only", func() {
		BeforeEach(func() {
			recognizer.result = ocr.Result{
				Text:       "스타벅스 강남점\n2024-03-15 13:45:00\n합계 12,000",
				Confidence: 92,
			}
		})

		It("stores the image under the user namespace and parses the text", func() {
			res, err := proc.ProcessUpload(context.Background(), userID, "image/jpeg", []byte("img"))
			Expect(err).NotTo(HaveOccurred())

			Expect(store.objects).To(HaveLen(1))
			Expect(res.ImagePath).To(HavePrefix(userID.String() + "/"))
			Expect(res.ImagePath).To(HaveSuffix(".jpg"))
			Expect(res.ImageURL).To(HavePrefix("/files/" + res.ImagePath))

			Expect(res.StoreName).To(HaveValue(Equal("스타벅스 강남점")))
			Expect(res.TotalAmount).To(HaveValue(Equal(int64(12000))))
			Expect(res.ReceiptDate).To(HaveValue(Equal("2024-03-15")))
			Expect(res.Confidence).To(Equal(92.0))
		})
	})

	When("the backend supplies hints alongside the text", func() {
		BeforeEach(func() {
			storeName := "이마트 역삼점"
			amount := int64(33000)
			recognizer.result = ocr.Result{
				Text:       "이마트\n합계 30,000",
				Confidence: 96,
				Hints:      ocr.Hints{StoreName: &storeName, TotalAmount: &amount},
			}
		})

		It("prefers the hint for fields it covers and parses the rest", func() {
			res, err := proc.ProcessUpload(context.Background(), userID, "image/png", []byte("img"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StoreName).To(HaveValue(Equal("이마트 역삼점")))
			Expect(res.TotalAmount).To(HaveValue(Equal(int64(33000))))
			// No date anywhere: the parser's today-fallback applies.
			Expect(res.ReceiptDate).To(HaveValue(Equal("2024-06-01")))
		})
	})

	When("ocr yields no text at all", func() {
		BeforeEach(func() {
			recognizer.result = ocr.Result{}
		})

		It("returns an empty draft for manual entry, image still stored", func() {
			res, err := proc.ProcessUpload(context.Background(), userID, "image/jpeg", []byte("img"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StoreName).To(BeNil())
			Expect(res.TotalAmount).To(BeNil())
			Expect(res.ReceiptDate).To(BeNil())
			Expect(store.objects).To(HaveLen(1))
		})
	})

	When("every ocr backend is down", func() {
		BeforeEach(func() {
			recognizer.err = common.ErrOCRBackendUnavailable
		})

		It("propagates the failure", func() {
			_, err := proc.ProcessUpload(context.Background(), userID, "image/jpeg", []byte("img"))
			Expect(err).To(MatchError(common.ErrOCRBackendUnavailable))
		})
	})
})
