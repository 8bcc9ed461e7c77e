package auth

import "time"

// User represents an authenticated user account. Role and province are
// assigned by user management and read here at login time only; changing
// them takes effect on the next credential issuance.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	ProvinceID   *int64
	CompanyID    *int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Claims is the immutable claim set baked into the session at login.
type Claims struct {
	Role        string
	ProvinceID  *int64
	LicenseType string
}
