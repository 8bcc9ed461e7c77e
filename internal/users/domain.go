// Package users manages user accounts: role and province assignment,
// activation, and company association for operator accounts. Role and
// province changes take effect at the next login, when claims are
// re-resolved into the session.
package users

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicateEmail indicates the email is already taken.
	ErrDuplicateEmail = errors.New("users: email already registered")
)

// User represents a managed user account.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	ProvinceID *int64    `json:"province_id,omitempty"`
	CompanyID  *int64    `json:"company_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateUserRequest carries input for creating an account. A registrar
// role requires a province assignment; operator roles require a company.
type CreateUserRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"required"`
	ProvinceID *int64 `json:"province_id"`
	CompanyID  *int64 `json:"company_id"`
}

// UpdateUserRequest carries partial updates for an account.
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	ProvinceID *int64  `json:"province_id"`
	CompanyID  *int64  `json:"company_id"`
	IsActive   *bool   `json:"is_active"`
	Password   *string `json:"password" validate:"omitempty,min=8"`
}

// ListUsersRequest carries listing filters.
type ListUsersRequest struct {
	Search   *string
	Role     *string
	IsActive *bool
	Limit    int
	Offset   int
}
