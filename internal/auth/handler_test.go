package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/registra-gov/registra/internal/auth"
	"github.com/registra-gov/registra/internal/shared"
	_ "github.com/registra-gov/registra/testing"
)

type stubRepo struct {
	user        *auth.User
	licenseType string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CompanyLicenseType(ctx context.Context, companyID int64) (string, error) {
	if s.licenseType == "" {
		return "", shared.ErrNotFound
	}
	return s.licenseType, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hashed)
}

func doLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	router.ServeHTTP(res, req)
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@registra.local",
		Name:         "Admin",
		PasswordHash: "",
		Role:         "admin",
		IsActive:     true,
	}}
	repo.user.PasswordHash = hashPassword(t, "correctpass")
	handler, sm := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sm, `{"email":"admin@registra.local","password":"correctpass"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", res.Code, res.Body.String())
	}

	var body struct {
		UserID      string   `json:"user_id"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
		CSRFToken   string   `json:"csrf_token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != "1" || body.Role != "admin" {
		t.Fatalf("body = %+v", body)
	}
	if len(body.Permissions) == 0 || body.CSRFToken == "" {
		t.Fatalf("missing permissions or csrf token: %+v", body)
	}
	if sess.User() != "1" {
		t.Fatalf("session user = %q", sess.User())
	}
	if sess.Get("role") != "admin" {
		t.Fatalf("role claim = %q", sess.Get("role"))
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:       1,
		Email:    "admin@registra.local",
		IsActive: true,
	}}
	repo.user.PasswordHash = hashPassword(t, "correctpass")
	handler, sm := newAuthHandler(t, repo)

	res, _ := doLogin(t, handler, sm, `{"email":"admin@registra.local","password":"wrongpass1"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
	if !strings.Contains(res.Body.String(), "invalid credentials") {
		t.Fatalf("body = %s", res.Body.String())
	}
}

func TestLoginRegistrarWithoutProvince(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:       5,
		Email:    "registrar@registra.local",
		Role:     "company_registrar",
		IsActive: true,
	}}
	repo.user.PasswordHash = hashPassword(t, "correctpass")
	handler, sm := newAuthHandler(t, repo)

	res, _ := doLogin(t, handler, sm, `{"email":"registrar@registra.local","password":"correctpass"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
	if !strings.Contains(res.Body.String(), "province claim missing from token") {
		t.Fatalf("body = %s", res.Body.String())
	}
}

func TestLoginOperatorResolvesLicenseType(t *testing.T) {
	companyID := int64(11)
	repo := &stubRepo{
		user: &auth.User{
			ID:        9,
			Email:     "operator@registra.local",
			Role:      "property_operator",
			CompanyID: &companyID,
			IsActive:  true,
		},
		licenseType: "realEstate",
	}
	repo.user.PasswordHash = hashPassword(t, "correctpass")
	handler, sm := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sm, `{"email":"operator@registra.local","password":"correctpass"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", res.Code, res.Body.String())
	}
	if sess.Get("license_type") != "realEstate" {
		t.Fatalf("license claim = %q", sess.Get("license_type"))
	}
}

func TestLoginInactiveUser(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:       2,
		Email:    "gone@registra.local",
		IsActive: false,
	}}
	repo.user.PasswordHash = hashPassword(t, "correctpass")
	handler, sm := newAuthHandler(t, repo)

	res, _ := doLogin(t, handler, sm, `{"email":"gone@registra.local","password":"correctpass"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}
