package app_test

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

	"github.com/registra-gov/registra/internal/app"
	"github.com/registra-gov/registra/internal/auth"
	"github.com/registra-gov/registra/internal/shared"
	_ "github.com/registra-gov/registra/testing"
)

type loginStubRepo struct {
	user *auth.User
}

func (s *loginStubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *loginStubRepo) CompanyLicenseType(ctx context.Context, companyID int64) (string, error) {
	return "", shared.ErrNotFound
}

func (s *loginStubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *loginStubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

// newStackRouter builds the production middleware chain around the auth
// routes, exactly as NewRouter does.
func newStackRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &loginStubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@registra.local",
		Name:         "Admin",
		PasswordHash: string(hash),
		Role:         "admin",
		IsActive:     true,
	}}
	authHandler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	for _, mw := range app.MiddlewareStack(app.MiddlewareConfig{
		Logger:         logger,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
	}) {
		r.Use(mw)
	}
	r.Route("/auth", authHandler.MountRoutes)
	return r
}

func TestLoginThroughMiddlewareStack(t *testing.T) {
	router := newStackRouter(t)

	// A fresh client fetches its CSRF token first.
	tokenReq := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	tokenRes := httptest.NewRecorder()
	router.ServeHTTP(tokenRes, tokenReq)
	if tokenRes.Code != http.StatusOK {
		t.Fatalf("csrf fetch status = %d body=%s", tokenRes.Code, tokenRes.Body.String())
	}
	var tokenBody struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(tokenRes.Body.Bytes(), &tokenBody); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if tokenBody.CSRFToken == "" {
		t.Fatal("empty csrf token")
	}
	cookies := tokenRes.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie issued")
	}

	// Login with the session cookie and the token passes the CSRF guard.
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"admin@registra.local","password":"correctpass"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	loginReq.Header.Set(shared.CSRFHeader, tokenBody.CSRFToken)
	for _, c := range cookies {
		loginReq.AddCookie(c)
	}
	loginRes := httptest.NewRecorder()
	router.ServeHTTP(loginRes, loginReq)
	if loginRes.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", loginRes.Code, loginRes.Body.String())
	}
	var loginBody struct {
		UserID    string `json:"user_id"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(loginRes.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if loginBody.UserID != "1" || loginBody.CSRFToken == "" {
		t.Fatalf("login body = %+v", loginBody)
	}
}

func TestLoginWithoutTokenIsRejected(t *testing.T) {
	router := newStackRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"admin@registra.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.Code)
	}
}

func TestLoginWithWrongTokenIsRejected(t *testing.T) {
	router := newStackRouter(t)

	tokenReq := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	tokenRes := httptest.NewRecorder()
	router.ServeHTTP(tokenRes, tokenReq)
	cookies := tokenRes.Result().Cookies()

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"admin@registra.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.CSRFHeader, "forged-token")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.Code)
	}
}
