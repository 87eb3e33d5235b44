package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"receiptsnap/internal/common"
	"receiptsnap/internal/entity"
)

// ListFilter narrows a listing to a billing period. Month is only honored
// together with Year; callers validate the combination.
type ListFilter struct {
	Year   int
	Month  int
	Limit  int
	Offset int
}

// SearchFilter narrows a search. Nil or zero fields are ignored.
type SearchFilter struct {
	Text      string
	StoreName string
	Category  string
	MinAmount *int64
	MaxAmount *int64
	FromDate  string
	ToDate    string
	Limit     int
	Offset    int
}

// ReceiptUpdate carries a partial update; nil fields are left untouched.
type ReceiptUpdate struct {
	StoreName   *string
	TotalAmount *int64
	ReceiptDate *string
	Category    *string
	Description *string
}

type ReceiptRepository interface {
	Create(ctx context.Context, rec *entity.Receipt) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Receipt, error)
	Update(ctx context.Context, userID, id uuid.UUID, upd ReceiptUpdate) (*entity.Receipt, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (string, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*entity.Receipt, error)
	Search(ctx context.Context, userID uuid.UUID, filter SearchFilter) ([]*entity.Receipt, error)
	Categories(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type receiptRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewReceiptRepository(db *sql.DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger}
}

const receiptColumns = "id, user_id, image_path, store_name, total_amount, receipt_date, category, description, raw_text, created_at, updated_at"

func scanReceipt(row interface{ Scan(...any) error }) (*entity.Receipt, error) {
	var rec entity.Receipt
	var id, userID string
	err := row.Scan(&id, &userID, &rec.ImagePath, &rec.StoreName, &rec.TotalAmount,
		&rec.ReceiptDate, &rec.Category, &rec.Description, &rec.RawText,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing receipt id: %w", err)
	}
	if rec.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}
	return &rec, nil
}

func (r *receiptRepository) Create(ctx context.Context, rec *entity.Receipt) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (`+receiptColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID.String(), rec.UserID.String(), rec.ImagePath, rec.StoreName, rec.TotalAmount,
		rec.ReceiptDate, rec.Category, rec.Description, rec.RawText,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create receipt", "user_id", rec.UserID, "error", err)
		return common.NewAppError("CREATE_FAILED", "failed to create receipt", err)
	}
	return nil
}

func (r *receiptRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Receipt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = $1 AND user_id = $2`,
		id.String(), userID.String())
	rec, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get receipt", "receipt_id", id, "error", err)
		return nil, common.NewAppError("GET_FAILED", "failed to get receipt", err)
	}
	return rec, nil
}

func (r *receiptRepository) Update(ctx context.Context, userID, id uuid.UUID, upd ReceiptUpdate) (*entity.Receipt, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.StoreName != nil {
		add("store_name", *upd.StoreName)
	}
	if upd.TotalAmount != nil {
		add("total_amount", *upd.TotalAmount)
	}
	if upd.ReceiptDate != nil {
		add("receipt_date", *upd.ReceiptDate)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, userID, id)
	}
	add("updated_at", time.Now().UTC().Format(time.RFC3339))

	args = append(args, id.String())
	idPos := len(args)
	args = append(args, userID.String())
	userPos := len(args)

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE receipts SET %s WHERE id = $%d AND user_id = $%d",
			strings.Join(sets, ", "), idPos, userPos),
		args...)
	if err != nil {
		r.logger.Error("failed to update receipt", "receipt_id", id, "error", err)
		return nil, common.NewAppError("UPDATE_FAILED", "failed to update receipt", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.ErrNotFound
	}
	return r.GetByID(ctx, userID, id)
}

// Delete removes the row and returns the stored image path so the caller
// can clean up the object store.
func (r *receiptRepository) Delete(ctx context.Context, userID, id uuid.UUID) (string, error) {
	rec, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM receipts WHERE id = $1 AND user_id = $2`,
		id.String(), userID.String())
	if err != nil {
		r.logger.Error("failed to delete receipt", "receipt_id", id, "error", err)
		return "", common.NewAppError("DELETE_FAILED", "failed to delete receipt", err)
	}
	return rec.ImagePath, nil
}

func (r *receiptRepository) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*entity.Receipt, error) {
	args := []any{userID.String()}
	where := []string{"user_id = $1"}
	if filter.Year > 0 {
		prefix := fmt.Sprintf("%04d", filter.Year)
		if filter.Month > 0 {
			prefix = fmt.Sprintf("%04d-%02d", filter.Year, filter.Month)
		}
		args = append(args, prefix+"%")
		where = append(where, fmt.Sprintf("receipt_date LIKE $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM receipts WHERE %s ORDER BY receipt_date DESC, created_at DESC`,
		receiptColumns, strings.Join(where, " AND "))
	query, args = withPaging(query, args, filter.Limit, filter.Offset)

	return r.queryReceipts(ctx, query, args)
}

func (r *receiptRepository) Search(ctx context.Context, userID uuid.UUID, filter SearchFilter) ([]*entity.Receipt, error) {
	args := []any{userID.String()}
	where := []string{"user_id = $1"}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Text != "" {
		pattern := "%" + filter.Text + "%"
		args = append(args, pattern, pattern, pattern)
		where = append(where, fmt.Sprintf(
			"(store_name LIKE $%d OR description LIKE $%d OR raw_text LIKE $%d)",
			len(args)-2, len(args)-1, len(args)))
	}
	if filter.StoreName != "" {
		add("store_name LIKE $%d", "%"+filter.StoreName+"%")
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.MinAmount != nil {
		add("total_amount >= $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("total_amount <= $%d", *filter.MaxAmount)
	}
	if filter.FromDate != "" {
		add("receipt_date >= $%d", filter.FromDate)
	}
	if filter.ToDate != "" {
		add("receipt_date <= $%d", filter.ToDate)
	}

	query := fmt.Sprintf(`SELECT %s FROM receipts WHERE %s ORDER BY receipt_date DESC, created_at DESC`,
		receiptColumns, strings.Join(where, " AND "))
	query, args = withPaging(query, args, filter.Limit, filter.Offset)

	return r.queryReceipts(ctx, query, args)
}

func (r *receiptRepository) Categories(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM receipts WHERE user_id = $1 ORDER BY category`,
		userID.String())
	if err != nil {
		r.logger.Error("failed to list categories", "user_id", userID, "error", err)
		return nil, common.NewAppError("LIST_FAILED", "failed to list categories", err)
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func withPaging(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func (r *receiptRepository) queryReceipts(ctx context.Context, query string, args []any) ([]*entity.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query receipts", "error", err)
		return nil, common.NewAppError("QUERY_FAILED", "failed to query receipts", err)
	}
	defer rows.Close()

	var recs []*entity.Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
