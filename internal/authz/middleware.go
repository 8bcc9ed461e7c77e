package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// Session claim keys written at login and read once per request. Claims
// are baked into the session when the credential is issued; a role or
// province change takes effect at the next login, never mid-session.
const (
	ClaimRole        = "role"
	ClaimProvinceID  = "province_id"
	ClaimLicenseType = "license_type"
)

// DenialObserver receives module-level authorization denials, typically a
// metrics counter.
type DenialObserver interface {
	ObserveDenial(module string)
}

// Middleware resolves the request principal and enforces module and
// permission guards. A false verdict from the engine becomes a fixed,
// role-agnostic 403; a registrar credential without its province claim
// becomes a 401 before any handler logic runs.
type Middleware struct {
	Logger  *slog.Logger
	Denials DenialObserver
}

// Authenticate builds the request principal from validated session claims
// and stores it in the request context. Requests without an authenticated
// session are rejected with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}

		role := ParseRole(sess.Get(ClaimRole))
		var provinceID *int64
		if raw := sess.Get(ClaimProvinceID); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("parse province claim", slog.String("value", raw))
				}
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			provinceID = &id
		}
		licenseType := ParseLicenseType(sess.Get(ClaimLicenseType))

		principal, err := NewPrincipal(sess.User(), role, provinceID, licenseType)
		if err != nil {
			if errors.Is(err, ErrProvinceClaimMissing) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}

		ctx := ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireModule rejects requests whose principal cannot reach the module.
func (m Middleware) RequireModule(module Module) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !CanAccessModule(p.Role, p.LicenseType, module) {
				m.deny(module)
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission rejects requests whose role lacks the permission.
func (m Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !HasPermission(p.Role, permission) {
				m.deny(ModuleUnknown)
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(module Module) {
	if m.Denials != nil {
		m.Denials.ObserveDenial(module.String())
	}
}
