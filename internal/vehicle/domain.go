// Package vehicle manages vehicle sale registrations submitted by
// licensed dealership operators.
package vehicle

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the registration does not exist.
	ErrNotFound = errors.New("vehicle: not found")
	// ErrDuplicateVIN indicates the chassis number is already registered.
	ErrDuplicateVIN = errors.New("vehicle: VIN already registered")
)

// Registration represents a registered vehicle sale.
type Registration struct {
	ID               int64     `json:"id"`
	Code             string    `json:"code"`
	PlateNo          string    `json:"plate_no"`
	VIN              string    `json:"vin"`
	Make             string    `json:"make"`
	Model            string    `json:"model"`
	Year             int       `json:"year"`
	Price            int64     `json:"price"`
	SellerName       string    `json:"seller_name"`
	SellerNationalID string    `json:"seller_national_id"`
	BuyerName        string    `json:"buyer_name"`
	BuyerNationalID  string    `json:"buyer_national_id"`
	ProvinceID       *int64    `json:"province_id,omitempty"`
	CompanyID        int64     `json:"company_id"`
	SaleDate         time.Time `json:"sale_date"`
	Notes            *string   `json:"notes,omitempty"`
	CreatedBy        int64     `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateRegistrationRequest carries input for registering a sale.
type CreateRegistrationRequest struct {
	PlateNo          string    `json:"plate_no" validate:"required"`
	VIN              string    `json:"vin" validate:"required,min=11"`
	Make             string    `json:"make" validate:"required"`
	Model            string    `json:"model" validate:"required"`
	Year             int       `json:"year" validate:"required,gte=1950"`
	Price            int64     `json:"price" validate:"required,gt=0"`
	SellerName       string    `json:"seller_name" validate:"required"`
	SellerNationalID string    `json:"seller_national_id" validate:"required"`
	BuyerName        string    `json:"buyer_name" validate:"required"`
	BuyerNationalID  string    `json:"buyer_national_id" validate:"required"`
	ProvinceID       *int64    `json:"province_id"`
	CompanyID        int64     `json:"company_id" validate:"required"`
	SaleDate         time.Time `json:"sale_date" validate:"required"`
	Notes            *string   `json:"notes"`
}

// UpdateRegistrationRequest carries partial updates for a registration.
type UpdateRegistrationRequest struct {
	PlateNo    *string    `json:"plate_no"`
	Price      *int64     `json:"price" validate:"omitempty,gt=0"`
	SellerName *string    `json:"seller_name"`
	BuyerName  *string    `json:"buyer_name"`
	SaleDate   *time.Time `json:"sale_date"`
	Notes      *string    `json:"notes"`
}

// ListRegistrationsRequest carries listing filters. CreatedBy is set by
// the service when the principal may only see its own records.
type ListRegistrationsRequest struct {
	Search     *string
	ProvinceID *int64
	CompanyID  *int64
	CreatedBy  *int64
	Limit      int
	Offset     int
}
