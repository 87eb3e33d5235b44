package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"receiptsnap/constants"
	"receiptsnap/internal/common"
	"receiptsnap/internal/entity"
	"receiptsnap/internal/report"
	"receiptsnap/internal/repository"
)

var reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// receiptView is the wire shape of a receipt: the stored record plus a
// freshly signed image URL.
type receiptView struct {
	*entity.Receipt
	ImageURL string `json:"image_url"`
}

func (s *Server) view(rec *entity.Receipt) receiptView {
	return receiptView{Receipt: rec, ImageURL: s.signer.Sign(rec.ImagePath)}
}

func (s *Server) views(recs []*entity.Receipt) []receiptView {
	out := make([]receiptView, len(recs))
	for i, rec := range recs {
		out[i] = s.view(rec)
	}
	return out
}

// handleScan matches POST /api/receipts/scan. The image arrives as the
// "image" part of a multipart form; the response is a draft for user review,
// nothing is persisted.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart form with an image part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	res, err := s.scanner.ProcessUpload(r.Context(), userID, contentType, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createReceiptRequest struct {
	ImagePath   string  `json:"image_path"`
	StoreName   *string `json:"store_name"`
	TotalAmount *int64  `json:"total_amount"`
	ReceiptDate *string `json:"receipt_date"`
	Category    string  `json:"category"`
	Description *string `json:"description"`
	RawText     *string `json:"raw_text"`
}

func (req *createReceiptRequest) validate() error {
	if req.ImagePath == "" {
		return common.NewAppError("VALIDATION", "image_path is required", common.ErrInvalidInput)
	}
	if req.TotalAmount != nil && *req.TotalAmount < 0 {
		return common.NewAppError("VALIDATION", "total_amount must not be negative", common.ErrInvalidInput)
	}
	if req.ReceiptDate != nil && !reISODate.MatchString(*req.ReceiptDate) {
		return common.NewAppError("VALIDATION", "receipt_date must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return nil
}

// handleCreate matches POST /api/receipts: the user confirmed (and possibly
// corrected) the draft, persist it.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())

	var req createReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := req.validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	rec := &entity.Receipt{
		UserID:      userID,
		ImagePath:   req.ImagePath,
		StoreName:   req.StoreName,
		TotalAmount: req.TotalAmount,
		ReceiptDate: req.ReceiptDate,
		Category:    normalizeCategory(req.Category),
		Description: req.Description,
		RawText:     req.RawText,
	}
	if err := s.repo.Create(r.Context(), rec); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("receipt.created", "receipt_id", rec.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, s.view(rec))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	q := r.URL.Query()

	filter, err := periodFilter(q.Get("year"), q.Get("month"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	filter.Limit = intParam(q.Get("limit"))
	filter.Offset = intParam(q.Get("offset"))

	recs, err := s.repo.List(r.Context(), userID, filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"receipts": s.views(recs),
		"summary":  report.Summarize(recs),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	q := r.URL.Query()

	filter := repository.SearchFilter{
		Text:      q.Get("q"),
		StoreName: q.Get("store"),
		Category:  q.Get("category"),
		FromDate:  q.Get("from"),
		ToDate:    q.Get("to"),
		Limit:     intParam(q.Get("limit")),
		Offset:    intParam(q.Get("offset")),
	}
	if v := q.Get("min_amount"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_amount must be an integer")
			return
		}
		filter.MinAmount = &n
	}
	if v := q.Get("max_amount"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_amount must be an integer")
			return
		}
		filter.MaxAmount = &n
	}

	recs, err := s.repo.Search(r.Context(), userID, filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"receipts": s.views(recs),
		"summary":  report.Summarize(recs),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	id, err := receiptID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.repo.GetByID(r.Context(), userID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec))
}

type patchReceiptRequest struct {
	StoreName   *string `json:"store_name"`
	TotalAmount *int64  `json:"total_amount"`
	ReceiptDate *string `json:"receipt_date"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	id, err := receiptID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req patchReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.TotalAmount != nil && *req.TotalAmount < 0 {
		writeError(w, http.StatusBadRequest, "total_amount must not be negative")
		return
	}
	if req.ReceiptDate != nil && !reISODate.MatchString(*req.ReceiptDate) {
		writeError(w, http.StatusBadRequest, "receipt_date must be YYYY-MM-DD")
		return
	}

	upd := repository.ReceiptUpdate{
		StoreName:   req.StoreName,
		TotalAmount: req.TotalAmount,
		ReceiptDate: req.ReceiptDate,
		Description: req.Description,
	}
	if req.Category != nil {
		canonical := normalizeCategory(*req.Category)
		upd.Category = &canonical
	}

	rec, err := s.repo.Update(r.Context(), userID, id, upd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("receipt.updated", "receipt_id", id, "user_id", userID)
	writeJSON(w, http.StatusOK, s.view(rec))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	id, err := receiptID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	imagePath, err := s.repo.Delete(r.Context(), userID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	// The row is gone; a stranded object is only a cleanup concern.
	if err := s.store.Delete(imagePath); err != nil {
		s.logger.Warn("receipt.image_cleanup_failed", "path", imagePath, "error", err)
	}
	s.logger.Info("receipt.deleted", "receipt_id", id, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// handleCategories returns the known category set merged with anything the
// user has already filed receipts under.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())

	used, err := s.repo.Categories(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	seen := map[string]struct{}{}
	var cats []string
	for _, c := range append(constants.AsStringSlice(), used...) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cats = append(cats, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// normalizeCategory maps recognized labels to their canonical form, keeps
// unrecognized non-empty labels as the user wrote them, and tags the rest
// with the catch-all.
func normalizeCategory(input string) string {
	if cat, ok := constants.Canonicalize(input); ok {
		return string(cat)
	}
	if strings.TrimSpace(input) != "" {
		return strings.TrimSpace(input)
	}
	return string(constants.DefaultCategory)
}

func receiptID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid receipt id: %w", common.ErrInvalidInput)
	}
	return id, nil
}

func intParam(v string) int {
	n, _ := strconv.Atoi(v)
	if n < 0 {
		return 0
	}
	return n
}

// periodFilter parses year/month query parameters. A month on its own has
// no period to narrow, so it is rejected rather than silently ignored.
func periodFilter(year, month string) (repository.ListFilter, error) {
	filter := repository.ListFilter{
		Year:  intParam(year),
		Month: intParam(month),
	}
	if filter.Month > 0 && filter.Year == 0 {
		return repository.ListFilter{}, common.NewAppError("VALIDATION", "month requires year", common.ErrInvalidInput)
	}
	if filter.Month > 12 {
		return repository.ListFilter{}, common.NewAppError("VALIDATION", "month must be between 1 and 12", common.ErrInvalidInput)
	}
	return filter, nil
}
