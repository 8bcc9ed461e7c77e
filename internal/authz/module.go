package authz

// Module is a named resource category subject to independent access rules.
// Every protected record belongs to exactly one module.
type Module uint8

const (
	ModuleUnknown Module = iota
	ModuleCompany
	ModuleProperty
	ModuleVehicle
	ModuleReports
	ModuleDashboard
	ModuleUsers
	ModuleSecurities
)

const (
	moduleCompanyName    = "company"
	modulePropertyName   = "property"
	moduleVehicleName    = "vehicle"
	moduleReportsName    = "reports"
	moduleDashboardName  = "dashboard"
	moduleUsersName      = "users"
	moduleSecuritiesName = "securities"
)

// ParseModule maps a module string to its Module value. Unrecognized
// strings map to ModuleUnknown.
func ParseModule(s string) Module {
	switch s {
	case moduleCompanyName:
		return ModuleCompany
	case modulePropertyName:
		return ModuleProperty
	case moduleVehicleName:
		return ModuleVehicle
	case moduleReportsName:
		return ModuleReports
	case moduleDashboardName:
		return ModuleDashboard
	case moduleUsersName:
		return ModuleUsers
	case moduleSecuritiesName:
		return ModuleSecurities
	default:
		return ModuleUnknown
	}
}

// String returns the canonical name of the module.
func (m Module) String() string {
	switch m {
	case ModuleCompany:
		return moduleCompanyName
	case ModuleProperty:
		return modulePropertyName
	case ModuleVehicle:
		return moduleVehicleName
	case ModuleReports:
		return moduleReportsName
	case ModuleDashboard:
		return moduleDashboardName
	case ModuleUsers:
		return moduleUsersName
	case ModuleSecurities:
		return moduleSecuritiesName
	default:
		return "unknown"
	}
}

// Valid reports whether the module is one of the defined variants.
func (m Module) Valid() bool {
	return m >= ModuleCompany && m <= ModuleSecurities
}

// Modules lists every defined module.
func Modules() []Module {
	return []Module{
		ModuleCompany,
		ModuleProperty,
		ModuleVehicle,
		ModuleReports,
		ModuleDashboard,
		ModuleUsers,
		ModuleSecurities,
	}
}

// LicenseType is a company-level attribute gating which transaction
// modules an operator role may reach.
type LicenseType uint8

const (
	LicenseNone LicenseType = iota
	LicenseRealEstate
	LicenseCarSale
	LicenseBoth
)

const (
	licenseRealEstateName = "realEstate"
	licenseCarSaleName    = "carSale"
	licenseBothName       = "both"
)

// ParseLicenseType maps a license type string to its value. Unrecognized
// strings map to LicenseNone, which satisfies no module gate.
func ParseLicenseType(s string) LicenseType {
	switch s {
	case licenseRealEstateName:
		return LicenseRealEstate
	case licenseCarSaleName:
		return LicenseCarSale
	case licenseBothName:
		return LicenseBoth
	default:
		return LicenseNone
	}
}

// String returns the canonical name of the license type.
func (t LicenseType) String() string {
	switch t {
	case LicenseRealEstate:
		return licenseRealEstateName
	case LicenseCarSale:
		return licenseCarSaleName
	case LicenseBoth:
		return licenseBothName
	default:
		return "none"
	}
}

// CoversRealEstate reports whether the license permits real-estate sales.
func (t LicenseType) CoversRealEstate() bool {
	return t == LicenseRealEstate || t == LicenseBoth
}

// CoversCarSale reports whether the license permits vehicle sales.
func (t LicenseType) CoversCarSale() bool {
	return t == LicenseCarSale || t == LicenseBoth
}
