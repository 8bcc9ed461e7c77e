// Package company manages the registry of licensed companies: real-estate
// agencies and car-sale dealerships holding a provincial license.
package company

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the company does not exist.
	ErrNotFound = errors.New("company: not found")
	// ErrDuplicateLicense indicates the license number is already registered.
	ErrDuplicateLicense = errors.New("company: license number already registered")
)

// Company represents a licensed company record.
type Company struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	LicenseNo     string     `json:"license_no"`
	LicenseType   string     `json:"license_type"`
	ProvinceID    *int64     `json:"province_id,omitempty"`
	LicenseExpiry time.Time  `json:"license_expiry"`
	OwnerName     string     `json:"owner_name"`
	Phone         *string    `json:"phone,omitempty"`
	Address       *string    `json:"address,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedBy     int64      `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateCompanyRequest carries input for registering a company.
type CreateCompanyRequest struct {
	Name          string    `json:"name" validate:"required"`
	LicenseNo     string    `json:"license_no" validate:"required"`
	LicenseType   string    `json:"license_type" validate:"required,oneof=realEstate carSale both"`
	ProvinceID    *int64    `json:"province_id" validate:"required"`
	LicenseExpiry time.Time `json:"license_expiry" validate:"required"`
	OwnerName     string    `json:"owner_name" validate:"required"`
	Phone         *string   `json:"phone"`
	Address       *string   `json:"address"`
}

// UpdateCompanyRequest carries partial updates for a company.
type UpdateCompanyRequest struct {
	Name          *string    `json:"name"`
	LicenseType   *string    `json:"license_type" validate:"omitempty,oneof=realEstate carSale both"`
	LicenseExpiry *time.Time `json:"license_expiry"`
	OwnerName     *string    `json:"owner_name"`
	Phone         *string    `json:"phone"`
	Address       *string    `json:"address"`
	IsActive      *bool      `json:"is_active"`
}

// ListCompaniesRequest carries listing filters. CreatedBy and ProvinceID
// are populated by the service from the authorization verdict, never from
// client input.
type ListCompaniesRequest struct {
	Search     *string
	IsActive   *bool
	ProvinceID *int64
	CreatedBy  *int64
	Limit      int
	Offset     int
}
