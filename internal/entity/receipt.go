package entity

import (
	"github.com/google/uuid"
)

// Receipt represents a persisted receipt record for transfer between layers.
// Dates are ISO strings (YYYY-MM-DD / RFC3339) end to end, matching the wire
// shape; aggregation buckets by string prefix, so nothing downstream needs a
// time.Time.
type Receipt struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ImagePath   string    `json:"image_path"`
	StoreName   *string   `json:"store_name"`
	TotalAmount *int64    `json:"total_amount"`
	ReceiptDate *string   `json:"receipt_date"`
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	RawText     *string   `json:"raw_text,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}
