package authz

import "sort"

// PolicyVersion identifies the static permission table below. Adding a
// role or module is a single atomic change to this file and a version
// bump; there is no runtime-configurable permission store.
const PolicyVersion = 1

// Permission operation suffixes.
const (
	opView   = "view"
	opCreate = "create"
	opEdit   = "edit"
	opDelete = "delete"
)

// rolePermissions is the process-wide role→permission-set table. It is
// initialized once and read-only for the process lifetime. Every defined
// role maps to a fixed, non-empty set; RoleUnknown maps to no entry and
// therefore denies everything.
var rolePermissions = map[Role]map[string]struct{}{
	RoleAdmin: permissionSet(map[Module][]string{
		ModuleCompany:    {opView, opCreate, opEdit, opDelete},
		ModuleProperty:   {opView, opCreate, opEdit, opDelete},
		ModuleVehicle:    {opView, opCreate, opEdit, opDelete},
		ModuleSecurities: {opView, opCreate, opEdit, opDelete},
		ModuleUsers:      {opView, opCreate, opEdit, opDelete},
		ModuleReports:    {opView},
		ModuleDashboard:  {opView},
	}),
	RoleAuthority:       viewOnlySet(),
	RoleLicenseReviewer: viewOnlySet(),
	RoleCompanyRegistrar: permissionSet(map[Module][]string{
		ModuleCompany:    {opView, opCreate, opEdit},
		ModuleSecurities: {opView, opCreate, opEdit},
		ModuleReports:    {opView},
		ModuleDashboard:  {opView},
	}),
	RolePropertyOperator: permissionSet(map[Module][]string{
		ModuleProperty:  {opView, opCreate, opEdit},
		ModuleDashboard: {opView},
	}),
	RoleVehicleOperator: permissionSet(map[Module][]string{
		ModuleVehicle:   {opView, opCreate, opEdit},
		ModuleDashboard: {opView},
	}),
}

func permissionSet(grants map[Module][]string) map[string]struct{} {
	set := make(map[string]struct{})
	for module, ops := range grants {
		for _, op := range ops {
			set[module.String()+"."+op] = struct{}{}
		}
	}
	return set
}

// viewOnlySet grants view on every module and nothing else. Used for the
// Authority and LicenseReviewer roles.
func viewOnlySet() map[string]struct{} {
	grants := make(map[Module][]string, len(Modules()))
	for _, m := range Modules() {
		grants[m] = []string{opView}
	}
	return permissionSet(grants)
}

// HasPermission reports whether the role's static permission set contains
// the named permission. Unknown roles map to an empty set.
func HasPermission(role Role, permission string) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

// PermissionsForRole returns the role's permission set sorted by name.
// The front end uses it to hide actions the server would deny anyway.
func PermissionsForRole(role Role) []string {
	set := rolePermissions[role]
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// CanAccessModule decides whether a role may reach a module at all,
// independent of record-level ownership. Operator roles are further gated
// by their company's license type; Admin and the view-only roles bypass
// that gate.
func CanAccessModule(role Role, licenseType LicenseType, module Module) bool {
	if !module.Valid() {
		return false
	}
	switch role {
	case RoleAdmin, RoleAuthority, RoleLicenseReviewer:
		return true
	case RoleCompanyRegistrar:
		switch module {
		case ModuleCompany, ModuleSecurities, ModuleReports, ModuleDashboard:
			return true
		}
		return false
	case RolePropertyOperator:
		if module == ModuleDashboard {
			return true
		}
		return module == ModuleProperty && licenseType.CoversRealEstate()
	case RoleVehicleOperator:
		if module == ModuleDashboard {
			return true
		}
		return module == ModuleVehicle && licenseType.CoversCarSale()
	default:
		return false
	}
}

// CanViewAllRecords decides whether record listings need no per-owner
// filtering for the role. A true verdict for CompanyRegistrar still
// requires the caller to apply province filtering; this function only
// answers "no per-owner filtering needed". Operators must be filtered to
// records they created.
func CanViewAllRecords(role Role, module Module) bool {
	if !module.Valid() {
		return false
	}
	switch role {
	case RoleAdmin, RoleAuthority, RoleLicenseReviewer:
		return true
	case RoleCompanyRegistrar:
		return HasPermission(role, module.String()+"."+opView)
	default:
		return false
	}
}

// CanCreateRecords decides whether the role may create records in the
// module. View-only roles never pass regardless of module.
func CanCreateRecords(role Role, module Module) bool {
	if !module.Valid() {
		return false
	}
	return HasPermission(role, module.String()+"."+opCreate)
}

// CanEditRecord decides whether the principal may edit the target record.
// Admin is unconditional. CompanyRegistrar requires province equality,
// independent of who created the record. Operator roles require strict
// self-ownership. Missing owner or province metadata fails closed: the
// record is treated as not editable by anyone but Admin.
func CanEditRecord(p Principal, module Module, rec RecordMeta) bool {
	if !module.Valid() {
		return false
	}
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleAuthority, RoleLicenseReviewer:
		return false
	case RoleCompanyRegistrar:
		if !HasPermission(p.Role, module.String()+"."+opEdit) {
			return false
		}
		if rec.CreatedBy == "" || p.ProvinceID == nil || rec.ProvinceID == nil {
			return false
		}
		return *rec.ProvinceID == *p.ProvinceID
	case RolePropertyOperator, RoleVehicleOperator:
		if !HasPermission(p.Role, module.String()+"."+opEdit) {
			return false
		}
		if rec.CreatedBy == "" || p.UserID == "" {
			return false
		}
		return rec.CreatedBy == p.UserID
	default:
		return false
	}
}

// CanDeleteRecords decides whether the role may delete records in the
// module. Delete is Admin-only across every module.
func CanDeleteRecords(role Role, module Module) bool {
	return role == RoleAdmin && module.Valid()
}
