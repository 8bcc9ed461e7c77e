package authz_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/shared"
	_ "github.com/registra-gov/registra/testing"
)

func sessionRequest(claims map[string]string, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/companies", nil)
	sess := &shared.Session{ID: "sess-1"}
	if userID != "" {
		sess.SetUser(userID)
	}
	for k, v := range claims {
		sess.Set(k, v)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestAuthenticateBuildsPrincipal(t *testing.T) {
	mw := authz.Middleware{}
	var got authz.Principal
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := authz.PrincipalFromContext(r.Context())
		if !ok {
			t.Fatal("principal missing from context")
		}
		got = p
	}))

	req := sessionRequest(map[string]string{
		authz.ClaimRole:        "property_operator",
		authz.ClaimLicenseType: "realEstate",
	}, "42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if got.UserID != "42" || got.Role != authz.RolePropertyOperator || got.LicenseType != authz.LicenseRealEstate {
		t.Fatalf("principal = %+v", got)
	}
}

func TestAuthenticateRejectsAnonymous(t *testing.T) {
	mw := authz.Middleware{}
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without session user")
	}))

	req := sessionRequest(nil, "")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}

func TestAuthenticateRegistrarWithoutProvince(t *testing.T) {
	mw := authz.Middleware{}
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with invalid registrar credential")
	}))

	req := sessionRequest(map[string]string{authz.ClaimRole: "company_registrar"}, "7")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["detail"] != "province claim missing from token" {
		t.Fatalf("detail = %v", body["detail"])
	}
}

type denialCounter struct {
	modules []string
}

func (d *denialCounter) ObserveDenial(module string) {
	d.modules = append(d.modules, module)
}

func TestRequireModuleDenialIsRoleAgnostic(t *testing.T) {
	denials := &denialCounter{}
	mw := authz.Middleware{Denials: denials}

	protected := mw.Authenticate(mw.RequireModule(authz.ModuleCompany)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without module access")
	})))

	// A property operator and an unknown role must receive the same body.
	var bodies []string
	for _, claims := range []map[string]string{
		{authz.ClaimRole: "property_operator", authz.ClaimLicenseType: "realEstate"},
		{authz.ClaimRole: "intruder"},
	} {
		res := httptest.NewRecorder()
		protected.ServeHTTP(res, sessionRequest(claims, "9"))
		if res.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", res.Code)
		}
		bodies = append(bodies, res.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("403 bodies differ by role: %q vs %q", bodies[0], bodies[1])
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(bodies[0]), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["detail"] != "access denied" {
		t.Fatalf("detail = %v", body["detail"])
	}
	if len(denials.modules) != 2 || denials.modules[0] != "company" {
		t.Fatalf("denials = %v", denials.modules)
	}
}

func TestRequireModuleAllowsLicensedOperator(t *testing.T) {
	mw := authz.Middleware{}
	reached := false
	protected := mw.Authenticate(mw.RequireModule(authz.ModuleProperty)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	res := httptest.NewRecorder()
	protected.ServeHTTP(res, sessionRequest(map[string]string{
		authz.ClaimRole:        "property_operator",
		authz.ClaimLicenseType: "both",
	}, "9"))
	if !reached || res.Code != http.StatusOK {
		t.Fatalf("reached=%v status=%d", reached, res.Code)
	}
}

func TestRequirePermissionBlocksViewOnly(t *testing.T) {
	mw := authz.Middleware{}
	protected := mw.Authenticate(mw.RequirePermission("company.create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("view-only role passed a create guard")
	})))

	res := httptest.NewRecorder()
	protected.ServeHTTP(res, sessionRequest(map[string]string{authz.ClaimRole: "authority"}, "3"))
	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.Code)
	}
}
