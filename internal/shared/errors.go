package shared

import "errors"

// Sentinel errors shared across the registry modules. Handlers map
// them onto problem responses in one place.
var (
	// ErrNotFound covers lookups for rows that do not exist or were
	// already removed.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials keeps login failures indistinguishable
	// between an unknown account and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing is returned when a mutating request carries
	// no token header.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch is returned when the header token does not
	// match the one stored in the session.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
