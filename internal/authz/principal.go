package authz

import (
	"context"
	"errors"
)

// ErrProvinceClaimMissing is returned when a CompanyRegistrar credential
// carries no province assignment. The request pipeline maps it to a 401
// before any handler logic runs.
var ErrProvinceClaimMissing = errors.New("province claim missing from token")

// Principal is the immutable identity a request acts under. It is built
// once at the authentication boundary from validated session claims and is
// never mutated afterwards.
type Principal struct {
	UserID      string
	Role        Role
	ProvinceID  *int64
	LicenseType LicenseType
}

// NewPrincipal validates the claim set and returns the request principal.
// A CompanyRegistrar without a province assignment is rejected.
func NewPrincipal(userID string, role Role, provinceID *int64, licenseType LicenseType) (Principal, error) {
	if role.RequiresProvince() && provinceID == nil {
		return Principal{}, ErrProvinceClaimMissing
	}
	return Principal{
		UserID:      userID,
		Role:        role,
		ProvinceID:  provinceID,
		LicenseType: licenseType,
	}, nil
}

// RecordMeta carries the ownership metadata of a target record, supplied
// by the data layer. The engine never computes it.
type RecordMeta struct {
	CreatedBy  string
	ProvinceID *int64
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. The second
// return value is false when no authenticated principal is present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
