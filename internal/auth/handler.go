package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers the unauthenticated auth routes. Me is mounted
// separately behind the principal middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRF)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type csrfResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// handleCSRF issues the CSRF token for the current session. Clients must
// fetch it before the first POST; the login request itself passes through
// the CSRF guard like any other mutation.
func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, csrfResponse{CSRFToken: token})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	ProvinceID  *int64   `json:"province_id,omitempty"`
	LicenseType string   `json:"license_type,omitempty"`
	Permissions []string `json:"permissions"`
	CSRFToken   string   `json:"csrf_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	claims, err := h.service.ResolveClaims(r.Context(), user)
	if err != nil {
		if errors.Is(err, authz.ErrProvinceClaimMissing) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		h.logger.Error("resolve claims", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.Set(authz.ClaimRole, claims.Role)
	if claims.ProvinceID != nil {
		sess.Set(authz.ClaimProvinceID, strconv.FormatInt(*claims.ProvinceID, 10))
	} else {
		sess.Delete(authz.ClaimProvinceID)
	}
	if claims.LicenseType != "" {
		sess.Set(authz.ClaimLicenseType, claims.LicenseType)
	} else {
		sess.Delete(authz.ClaimLicenseType)
	}

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if sess.ID != "" {
		if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
			h.logger.Warn("register session", slog.Any("error", err))
		}
	}

	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	role := authz.ParseRole(claims.Role)
	httpx.JSON(w, http.StatusOK, loginResponse{
		UserID:      strconv.FormatInt(user.ID, 10),
		Name:        user.Name,
		Role:        claims.Role,
		ProvinceID:  claims.ProvinceID,
		LicenseType: claims.LicenseType,
		Permissions: authz.PermissionsForRole(role),
		CSRFToken:   csrfToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	ProvinceID  *int64   `json:"province_id,omitempty"`
	LicenseType string   `json:"license_type,omitempty"`
	Permissions []string `json:"permissions"`
}

// Me reports the authenticated principal and its permission set.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	resp := meResponse{
		UserID:      p.UserID,
		Role:        p.Role.String(),
		ProvinceID:  p.ProvinceID,
		Permissions: authz.PermissionsForRole(p.Role),
	}
	if p.LicenseType != authz.LicenseNone {
		resp.LicenseType = p.LicenseType.String()
	}
	httpx.JSON(w, http.StatusOK, resp)
}
