package authz

import (
	"testing"
)

func int64p(v int64) *int64 {
	p := v
	return &p
}

func mustPrincipal(t *testing.T, userID string, role Role, provinceID *int64, lt LicenseType) Principal {
	t.Helper()
	p, err := NewPrincipal(userID, role, provinceID, lt)
	if err != nil {
		t.Fatalf("new principal: %v", err)
	}
	return p
}

func TestAdminFullAccess(t *testing.T) {
	admin := mustPrincipal(t, "u1", RoleAdmin, nil, LicenseNone)
	for _, module := range Modules() {
		if !CanAccessModule(RoleAdmin, LicenseNone, module) {
			t.Errorf("admin denied module %s", module)
		}
		if !CanViewAllRecords(RoleAdmin, module) {
			t.Errorf("admin cannot view all in %s", module)
		}
		if !CanEditRecord(admin, module, RecordMeta{}) {
			t.Errorf("admin cannot edit in %s with empty metadata", module)
		}
		if !CanDeleteRecords(RoleAdmin, module) {
			t.Errorf("admin cannot delete in %s", module)
		}
	}
	// S1 spot check on the vehicle module.
	if !CanCreateRecords(RoleAdmin, ModuleVehicle) {
		t.Error("admin cannot create vehicles")
	}
}

func TestViewOnlyRolesNeverMutate(t *testing.T) {
	for _, role := range []Role{RoleAuthority, RoleLicenseReviewer} {
		if !IsViewOnlyRole(role) {
			t.Errorf("%s not flagged view-only", role)
		}
		p := mustPrincipal(t, "u2", role, nil, LicenseNone)
		for _, module := range Modules() {
			if !CanAccessModule(role, LicenseNone, module) {
				t.Errorf("%s denied module %s", role, module)
			}
			if !CanViewAllRecords(role, module) {
				t.Errorf("%s cannot view all in %s", role, module)
			}
			if CanCreateRecords(role, module) {
				t.Errorf("%s may create in %s", role, module)
			}
			if CanEditRecord(p, module, RecordMeta{CreatedBy: "u2", ProvinceID: int64p(1)}) {
				t.Errorf("%s may edit in %s", role, module)
			}
			if CanDeleteRecords(role, module) {
				t.Errorf("%s may delete in %s", role, module)
			}
		}
	}
	for _, role := range []Role{RoleAdmin, RoleCompanyRegistrar, RolePropertyOperator, RoleVehicleOperator, RoleUnknown} {
		if IsViewOnlyRole(role) {
			t.Errorf("%s wrongly flagged view-only", role)
		}
	}
}

func TestRegistrarProvinceEquality(t *testing.T) {
	reg := mustPrincipal(t, "u5", RoleCompanyRegistrar, int64p(5), LicenseNone)

	// S3: same province edits, different province does not.
	if !CanEditRecord(reg, ModuleCompany, RecordMeta{CreatedBy: "u9", ProvinceID: int64p(5)}) {
		t.Error("registrar denied edit in own province")
	}
	if CanEditRecord(reg, ModuleCompany, RecordMeta{CreatedBy: "u9", ProvinceID: int64p(7)}) {
		t.Error("registrar allowed edit outside own province")
	}
	// Province equality is mandatory even for self-created records.
	if CanEditRecord(reg, ModuleCompany, RecordMeta{CreatedBy: "u5", ProvinceID: int64p(7)}) {
		t.Error("registrar allowed out-of-province edit of own record")
	}
	// Ownership is irrelevant when provinces match.
	if !CanEditRecord(reg, ModuleSecurities, RecordMeta{CreatedBy: "someone-else", ProvinceID: int64p(5)}) {
		t.Error("registrar edit should not depend on creator identity")
	}
	// Missing record province fails closed.
	if CanEditRecord(reg, ModuleCompany, RecordMeta{CreatedBy: "u9"}) {
		t.Error("registrar allowed edit of record with no province")
	}
}

func TestRegistrarModuleScope(t *testing.T) {
	allowed := map[Module]bool{
		ModuleCompany:    true,
		ModuleSecurities: true,
		ModuleReports:    true,
		ModuleDashboard:  true,
	}
	for _, module := range Modules() {
		got := CanAccessModule(RoleCompanyRegistrar, LicenseNone, module)
		if got != allowed[module] {
			t.Errorf("registrar access to %s = %v, want %v", module, got, allowed[module])
		}
	}
	if CanDeleteRecords(RoleCompanyRegistrar, ModuleCompany) {
		t.Error("registrar may delete companies")
	}
}

func TestOperatorSelfOwnership(t *testing.T) {
	op := mustPrincipal(t, "u1", RolePropertyOperator, nil, LicenseRealEstate)

	// S4: strict creator equality.
	if !CanEditRecord(op, ModuleProperty, RecordMeta{CreatedBy: "u1"}) {
		t.Error("operator denied edit of own record")
	}
	if CanEditRecord(op, ModuleProperty, RecordMeta{CreatedBy: "u2"}) {
		t.Error("operator allowed edit of someone else's record")
	}
	// Missing creator fails closed.
	if CanEditRecord(op, ModuleProperty, RecordMeta{}) {
		t.Error("operator allowed edit of record with no creator")
	}
	// No cross-module rights.
	if CanEditRecord(op, ModuleVehicle, RecordMeta{CreatedBy: "u1"}) {
		t.Error("property operator allowed vehicle edit")
	}
	if CanViewAllRecords(RolePropertyOperator, ModuleProperty) {
		t.Error("operator exempt from owner filtering")
	}
	if CanDeleteRecords(RolePropertyOperator, ModuleProperty) {
		t.Error("operator may delete")
	}
}

func TestOperatorLicenseGate(t *testing.T) {
	cases := []struct {
		role    Role
		lt      LicenseType
		module  Module
		allowed bool
	}{
		// S5: license/module mismatch denies despite nominal module ownership.
		{RolePropertyOperator, LicenseCarSale, ModuleProperty, false},
		{RolePropertyOperator, LicenseRealEstate, ModuleProperty, true},
		{RolePropertyOperator, LicenseBoth, ModuleProperty, true},
		{RolePropertyOperator, LicenseNone, ModuleProperty, false},
		{RoleVehicleOperator, LicenseRealEstate, ModuleVehicle, false},
		{RoleVehicleOperator, LicenseCarSale, ModuleVehicle, true},
		{RoleVehicleOperator, LicenseBoth, ModuleVehicle, true},
		// Dashboard stays reachable regardless of license.
		{RolePropertyOperator, LicenseNone, ModuleDashboard, true},
		{RoleVehicleOperator, LicenseNone, ModuleDashboard, true},
		// Operators never reach other modules.
		{RolePropertyOperator, LicenseBoth, ModuleCompany, false},
		{RoleVehicleOperator, LicenseBoth, ModuleUsers, false},
	}
	for _, tc := range cases {
		got := CanAccessModule(tc.role, tc.lt, tc.module)
		if got != tc.allowed {
			t.Errorf("CanAccessModule(%s, %s, %s) = %v, want %v", tc.role, tc.lt, tc.module, got, tc.allowed)
		}
	}
}

func TestUnknownRoleDeniesEverything(t *testing.T) {
	role := ParseRole("superuser")
	if role != RoleUnknown {
		t.Fatalf("parse unknown role: got %v", role)
	}
	p := Principal{UserID: "u1", Role: role}
	for _, module := range Modules() {
		if CanAccessModule(role, LicenseBoth, module) {
			t.Errorf("unknown role reached %s", module)
		}
		if CanViewAllRecords(role, module) {
			t.Errorf("unknown role views all in %s", module)
		}
		if CanCreateRecords(role, module) {
			t.Errorf("unknown role creates in %s", module)
		}
		if CanEditRecord(p, module, RecordMeta{CreatedBy: "u1"}) {
			t.Errorf("unknown role edits in %s", module)
		}
		if CanDeleteRecords(role, module) {
			t.Errorf("unknown role deletes in %s", module)
		}
	}
	if HasPermission(role, "property.view") {
		t.Error("unknown role holds a permission")
	}
	if len(PermissionsForRole(role)) != 0 {
		t.Error("unknown role has a non-empty permission set")
	}
}

func TestInvalidModuleDenied(t *testing.T) {
	if ParseModule("petition") != ModuleUnknown {
		t.Error("petition is not a first-class module")
	}
	admin := mustPrincipal(t, "u1", RoleAdmin, nil, LicenseNone)
	if CanAccessModule(RoleAdmin, LicenseNone, ModuleUnknown) {
		t.Error("admin reached unknown module")
	}
	if CanEditRecord(admin, ModuleUnknown, RecordMeta{}) {
		t.Error("admin edits in unknown module")
	}
	if CanDeleteRecords(RoleAdmin, ModuleUnknown) {
		t.Error("admin deletes in unknown module")
	}
}

func TestRegistrarRequiresProvince(t *testing.T) {
	if _, err := NewPrincipal("u5", RoleCompanyRegistrar, nil, LicenseNone); err != ErrProvinceClaimMissing {
		t.Fatalf("expected ErrProvinceClaimMissing, got %v", err)
	}
	// Every other role builds fine without a province.
	for _, role := range []Role{RoleAdmin, RoleAuthority, RoleLicenseReviewer, RolePropertyOperator, RoleVehicleOperator} {
		if _, err := NewPrincipal("u1", role, nil, LicenseNone); err != nil {
			t.Errorf("%s: unexpected error %v", role, err)
		}
	}
}

func TestDecisionIdempotence(t *testing.T) {
	reg := mustPrincipal(t, "u5", RoleCompanyRegistrar, int64p(5), LicenseNone)
	rec := RecordMeta{CreatedBy: "u9", ProvinceID: int64p(5)}
	first := CanEditRecord(reg, ModuleCompany, rec)
	for i := 0; i < 100; i++ {
		if CanEditRecord(reg, ModuleCompany, rec) != first {
			t.Fatal("decision changed between identical calls")
		}
	}
}

func TestPermissionsForRoleSorted(t *testing.T) {
	perms := PermissionsForRole(RoleCompanyRegistrar)
	if len(perms) == 0 {
		t.Fatal("registrar permission set empty")
	}
	for i := 1; i < len(perms); i++ {
		if perms[i-1] >= perms[i] {
			t.Fatalf("permissions not sorted: %v", perms)
		}
	}
	want := map[string]bool{
		"company.view": true, "company.create": true, "company.edit": true,
		"securities.view": true, "securities.create": true, "securities.edit": true,
		"reports.view": true, "dashboard.view": true,
	}
	if len(perms) != len(want) {
		t.Fatalf("registrar permissions = %v", perms)
	}
	for _, p := range perms {
		if !want[p] {
			t.Errorf("unexpected registrar permission %q", p)
		}
	}
}
