// Package authz implements the authorization policy engine for the
// licensing registry. Every decision function is a pure, total function of
// the caller-supplied principal and record metadata: unknown inputs yield
// a deny verdict, never an error.
package authz

// Role is the primary authorization identity assigned to a user. The zero
// value is RoleUnknown, which is denied everything.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleAuthority
	RoleLicenseReviewer
	RoleCompanyRegistrar
	RolePropertyOperator
	RoleVehicleOperator
)

const (
	roleAdminName            = "admin"
	roleAuthorityName        = "authority"
	roleLicenseReviewerName  = "license_reviewer"
	roleCompanyRegistrarName = "company_registrar"
	rolePropertyOperatorName = "property_operator"
	roleVehicleOperatorName  = "vehicle_operator"
)

// ParseRole maps a stored role string to its Role value. Unrecognized
// strings map to RoleUnknown.
func ParseRole(s string) Role {
	switch s {
	case roleAdminName:
		return RoleAdmin
	case roleAuthorityName:
		return RoleAuthority
	case roleLicenseReviewerName:
		return RoleLicenseReviewer
	case roleCompanyRegistrarName:
		return RoleCompanyRegistrar
	case rolePropertyOperatorName:
		return RolePropertyOperator
	case roleVehicleOperatorName:
		return RoleVehicleOperator
	default:
		return RoleUnknown
	}
}

// String returns the canonical storage name of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return roleAdminName
	case RoleAuthority:
		return roleAuthorityName
	case RoleLicenseReviewer:
		return roleLicenseReviewerName
	case RoleCompanyRegistrar:
		return roleCompanyRegistrarName
	case RolePropertyOperator:
		return rolePropertyOperatorName
	case RoleVehicleOperator:
		return roleVehicleOperatorName
	default:
		return "unknown"
	}
}

// Valid reports whether the role is one of the defined variants.
func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleVehicleOperator
}

// Roles lists every defined role. Used by the users module to validate
// role assignment input.
func Roles() []Role {
	return []Role{
		RoleAdmin,
		RoleAuthority,
		RoleLicenseReviewer,
		RoleCompanyRegistrar,
		RolePropertyOperator,
		RoleVehicleOperator,
	}
}

// IsViewOnlyRole reports whether the role may read but never mutate.
// True exactly for Authority and LicenseReviewer.
func IsViewOnlyRole(r Role) bool {
	return r == RoleAuthority || r == RoleLicenseReviewer
}

// RequiresProvince reports whether a province assignment is mandatory for
// the role. A CompanyRegistrar credential without a province is an
// authentication failure, not a soft default.
func (r Role) RequiresProvince() bool {
	return r == RoleCompanyRegistrar
}
