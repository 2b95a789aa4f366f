package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"admin-service/internal/audit"
	"admin-service/internal/config"
	"admin-service/internal/hashing"
	"admin-service/internal/repository/memory"
	"admin-service/internal/service"
	"admin-service/internal/token"
)

type capturingMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *capturingMailer) SendResetToken(_ context.Context, email, resetToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]string)
	}
	m.tokens[email] = resetToken
	return nil
}

func (m *capturingMailer) tokenFor(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type testServer struct {
	router chi.Router
	mailer *capturingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hasher := hashing.NewHasher(&config.Config{
		Hashing: config.HashingConfig{
			Argon2MemoryKiB:   8192,
			Argon2Iterations:  1,
			Argon2Parallelism: 1,
		},
	})
	mailer := &capturingMailer{}

	svc := service.NewAdminService(
		memory.NewAdminRepository(),
		hasher,
		token.NewGenerator(time.Hour),
		memory.NewSessionStore(),
		memory.NewLoginLimiter(5),
		mailer,
		audit.NewPublisher(nil, nil, nil),
		12*time.Hour,
	)

	logger := zap.NewNop()
	router := NewRouter(NewAdminHandler(svc, logger, false), logger, nil)
	return &testServer{router: router, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) bootstrap(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/admin/bootstrap", map[string]string{
		"email":    "a@x.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (s *testServer) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil
}

func withCookie(cookie *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(cookie) }
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = s.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBootstrapEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/bootstrap", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bootstrap_required":true`)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/bootstrap", map[string]string{
		"email":    "a@x.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	// The profile must never expose credential state.
	assert.NotContains(t, rec.Body.String(), "password_digest")
	assert.NotContains(t, rec.Body.String(), "Secret123!")
	assert.NotContains(t, rec.Body.String(), "reset_token")
	assert.Contains(t, rec.Body.String(), `"is_first_admin":true`)
	assert.Contains(t, rec.Body.String(), `"role":"super_admin"`)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/bootstrap", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bootstrap_required":false`)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/bootstrap", map[string]string{
		"email":    "b@x.com",
		"password": "Another123!",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBootstrapRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/bootstrap", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/bootstrap", map[string]string{
		"email":    "not-an-email",
		"password": "Secret123!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginDoesNotDistinguishFailureModes(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)

	unknown := s.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    "nobody@x.com",
		"password": "Secret123!",
	})
	wrongPassword := s.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.JSONEq(t, unknown.Body.String(), wrongPassword.Body.String())
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)
	cookie := s.login(t, "a@x.com", "Secret123!")

	rec := s.do(t, http.MethodGet, "/api/v1/admin/status", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@x.com"`)

	// The bearer header is accepted as an alternative to the cookie.
	rec = s.do(t, http.MethodGet, "/api/v1/admin/status", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+cookie.Value)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/logout", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/status", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusRequiresSession(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/status", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotPasswordIsUniform(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)

	known := s.do(t, http.MethodPost, "/api/v1/admin/forgot-password", map[string]string{"email": "a@x.com"})
	unknown := s.do(t, http.MethodPost, "/api/v1/admin/forgot-password", map[string]string{"email": "nobody@x.com"})

	// Identical status and body whether or not the address matched.
	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())

	assert.NotEmpty(t, s.mailer.tokenFor("a@x.com"))
	assert.Empty(t, s.mailer.tokenFor("nobody@x.com"))
}

func TestResetPasswordEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	resetToken := s.mailer.tokenFor("a@x.com")
	require.NotEmpty(t, resetToken)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/reset-password", map[string]string{
		"token":        "bogus-token",
		"new_password": "Fresh456!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/reset-password", map[string]string{
		"token":        resetToken,
		"new_password": "Fresh456!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	s.login(t, "a@x.com", "Fresh456!")
}

func TestCancelResetEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)
	cookie := s.login(t, "a@x.com", "Secret123!")

	rec := s.do(t, http.MethodPost, "/api/v1/admin/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	resetToken := s.mailer.tokenFor("a@x.com")
	require.NotEmpty(t, resetToken)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/cancel-reset", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	// The mailed token is dead after cancellation.
	rec = s.do(t, http.MethodPost, "/api/v1/admin/reset-password", map[string]string{
		"token":        resetToken,
		"new_password": "Fresh456!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/cancel-reset", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)
	cookie := s.login(t, "a@x.com", "Secret123!")

	rec := s.do(t, http.MethodPost, "/api/v1/admin/change-password", map[string]string{
		"current_password": "wrong-password",
		"new_password":     "Fresh456!",
	}, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/change-password", map[string]string{
		"current_password": "Secret123!",
		"new_password":     "Fresh456!",
	}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	s.login(t, "a@x.com", "Fresh456!")
}

func TestActivityEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)
	cookie := s.login(t, "a@x.com", "Secret123!")

	rec := s.do(t, http.MethodPost, "/api/v1/admin/activity", map[string]interface{}{
		"action":  "note",
		"details": map[string]string{"reason": "manual check"},
	}, withCookie(cookie))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/activity", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"action":"bootstrap"`)
	assert.Contains(t, body, `"action":"login"`)
	assert.Contains(t, body, `"action":"note"`)
	assert.Contains(t, body, "manual check")

	rec = s.do(t, http.MethodGet, "/api/v1/admin/activity", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSuspendEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.bootstrap(t)
	cookie := s.login(t, "a@x.com", "Secret123!")

	var adminID string
	rec := s.do(t, http.MethodGet, "/api/v1/admin/status", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	adminID = resp.Data.ID
	require.NotEmpty(t, adminID)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/"+adminID+"/suspend", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	login := s.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    "a@x.com",
		"password": "Secret123!",
	})
	assert.Equal(t, http.StatusForbidden, login.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/"+adminID+"/reinstate", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	s.login(t, "a@x.com", "Secret123!")

	rec = s.do(t, http.MethodPost, "/api/v1/admin/"+adminID+"/suspend", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/admin/no-such-route", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
