// Package petition manages petition-writer licenses. Petition writers are
// individuals licensed by the provincial registrar, so access control
// follows the company module rules.
package petition

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the license does not exist.
	ErrNotFound = errors.New("petition: not found")
	// ErrDuplicateLicense indicates the license number is already registered.
	ErrDuplicateLicense = errors.New("petition: license number already registered")
)

// License represents a petition-writer license.
type License struct {
	ID            int64     `json:"id"`
	LicenseNo     string    `json:"license_no"`
	HolderName    string    `json:"holder_name"`
	NationalID    string    `json:"national_id"`
	ProvinceID    *int64    `json:"province_id,omitempty"`
	IssueDate     time.Time `json:"issue_date"`
	LicenseExpiry time.Time `json:"license_expiry"`
	OfficeAddress *string   `json:"office_address,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateLicenseRequest carries input for issuing a license.
type CreateLicenseRequest struct {
	LicenseNo     string    `json:"license_no" validate:"required"`
	HolderName    string    `json:"holder_name" validate:"required"`
	NationalID    string    `json:"national_id" validate:"required"`
	ProvinceID    *int64    `json:"province_id" validate:"required"`
	IssueDate     time.Time `json:"issue_date" validate:"required"`
	LicenseExpiry time.Time `json:"license_expiry" validate:"required"`
	OfficeAddress *string   `json:"office_address"`
	Phone         *string   `json:"phone"`
}

// UpdateLicenseRequest carries partial updates for a license.
type UpdateLicenseRequest struct {
	HolderName    *string    `json:"holder_name"`
	LicenseExpiry *time.Time `json:"license_expiry"`
	OfficeAddress *string    `json:"office_address"`
	Phone         *string    `json:"phone"`
	IsActive      *bool      `json:"is_active"`
}

// ListLicensesRequest carries listing filters. ProvinceID and CreatedBy
// are populated by the service from the authorization verdict.
type ListLicensesRequest struct {
	Search     *string
	IsActive   *bool
	ProvinceID *int64
	CreatedBy  *int64
	Limit      int
	Offset     int
}
