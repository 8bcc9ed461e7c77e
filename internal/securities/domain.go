// Package securities tracks serial-numbered security form batches issued
// to licensed companies by the provincial authority.
package securities

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the batch does not exist.
	ErrNotFound = errors.New("securities: not found")
	// ErrSerialOverlap indicates the serial range collides with an issued batch.
	ErrSerialOverlap = errors.New("securities: serial range overlaps an issued batch")
	// ErrInvalidRange indicates serial_from exceeds serial_to.
	ErrInvalidRange = errors.New("securities: invalid serial range")
)

// Batch represents one issued range of security forms.
type Batch struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	SerialFrom int64     `json:"serial_from"`
	SerialTo   int64     `json:"serial_to"`
	IssuedBy   string    `json:"issued_by"`
	IssueDate  time.Time `json:"issue_date"`
	ProvinceID *int64    `json:"province_id,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Count returns the number of forms in the batch.
func (b Batch) Count() int64 {
	return b.SerialTo - b.SerialFrom + 1
}

// CreateBatchRequest carries input for issuing a batch.
type CreateBatchRequest struct {
	CompanyID  int64     `json:"company_id" validate:"required"`
	SerialFrom int64     `json:"serial_from" validate:"required,gt=0"`
	SerialTo   int64     `json:"serial_to" validate:"required,gt=0"`
	IssuedBy   string    `json:"issued_by" validate:"required"`
	IssueDate  time.Time `json:"issue_date" validate:"required"`
	ProvinceID *int64    `json:"province_id"`
	Notes      *string   `json:"notes"`
}

// UpdateBatchRequest carries partial updates for a batch.
type UpdateBatchRequest struct {
	IssuedBy  *string    `json:"issued_by"`
	IssueDate *time.Time `json:"issue_date"`
	Notes     *string    `json:"notes"`
}

// ListBatchesRequest carries listing filters. ProvinceID and CreatedBy
// are populated by the service from the authorization verdict.
type ListBatchesRequest struct {
	CompanyID  *int64
	ProvinceID *int64
	CreatedBy  *int64
	Limit      int
	Offset     int
}
