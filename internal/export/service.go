package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"receiptsnap/internal/entity"
	"receiptsnap/internal/repository"
)

// Service is a tiny façade over the receipt repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.ReceiptRepository
	logger *slog.Logger
}

func NewService(repo repository.ReceiptRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportReceiptsXLSX returns an XLSX workbook (as bytes) for the given user
// and date window. Empty from/to bounds mean unbounded on that side.
func (s *Service) ExportReceiptsXLSX(ctx context.Context, userID uuid.UUID, fromDate, toDate string) ([]byte, error) {
	start := time.Now()

	recs, err := s.repo.Search(ctx, userID, repository.SearchFilter{
		FromDate: fromDate,
		ToDate:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}

	data, err := BuildXLSX(recs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID.String(),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// BuildXLSX renders recs into a single-sheet workbook.
func BuildXLSX(recs []*entity.Receipt) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Receipts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Date",
		"Store",
		"Amount",
		"Category",
		"Notes",
		"Image Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if rec.ReceiptDate != nil {
			write(1, *rec.ReceiptDate)
		} else {
			write(1, "")
		}
		if rec.StoreName != nil {
			write(2, *rec.StoreName)
		} else {
			write(2, "")
		}
		if rec.TotalAmount != nil {
			write(3, *rec.TotalAmount)
		} else {
			write(3, "")
		}
		write(4, rec.Category)
		if rec.Description != nil {
			write(5, truncate(*rec.Description, 140))
		} else {
			write(5, "")
		}
		write(6, rec.ImagePath)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // store
	_ = f.SetColWidth(sheet, "C", "C", 14) // amount
	_ = f.SetColWidth(sheet, "D", "D", 18) // category
	_ = f.SetColWidth(sheet, "E", "E", 48) // notes
	_ = f.SetColWidth(sheet, "F", "F", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
