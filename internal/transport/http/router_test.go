package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-auth-nosql/internal/application/auth"
	"github.com/go-auth-nosql/internal/application/session"
	"github.com/go-auth-nosql/internal/application/token"
	"github.com/go-auth-nosql/internal/config"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
	"github.com/go-auth-nosql/internal/infrastructure/memory"
	"github.com/go-auth-nosql/internal/pkg/password"
	"github.com/go-auth-nosql/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type capture struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]string
}

func (c *capture) SendVerification(_ context.Context, to, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[to] = code
	return nil
}
func (c *capture) SendWelcome(context.Context, string, string) error { return nil }
func (c *capture) SendPasswordReset(_ context.Context, to, tok string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets[to] = tok
	return nil
}
func (c *capture) SendResetSuccess(context.Context, string) error { return nil }

type stack struct {
	h     http.Handler
	out   *capture
	clock *time.Time
}

func newStack(t *testing.T) *stack {
	t.Helper()
	now := time.Now().UTC()
	s := &stack{out: &capture{codes: map[string]string{}, resets: map[string]string{}}, clock: &now}
	clock := func() time.Time { return *s.clock }

	repo := memory.NewAccountRepo()
	jp, err := jwtinfra.NewProvider([]byte("router-secret"), 7*24*time.Hour, clock)
	require.NoError(t, err)
	issuer := token.NewIssuer(token.IssuerDeps{Store: repo, Sessions: jp, Clock: clock})
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := auth.NewService(auth.ServiceDeps{
		Accounts: repo,
		Tokens:   issuer,
		Secrets:  password.NewHasher(bcrypt.MinCost),
		Notifier: s.out,
		Logger:   logger,
	})
	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:5173"}}
	s.h = NewRouter(cfg, &Deps{
		Auth:    svc,
		Guard:   session.NewGuard(issuer),
		Cookies: middleware.NewCookieManager("token", "", false, "strict"),
		Metrics: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
		Logger:  logger,
	})
	return s
}

func (s *stack) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestRouter_SignupVerifyLoginCheckAuth(t *testing.T) {
	s := newStack(t)

	rr := s.do(http.MethodPost, "/api/v1/auth/signup", `{"email":"a@x.com","password":"pw1","name":"Al"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "$2a$")

	rr = s.do(http.MethodPost, "/api/v1/auth/verify-email", `{"code":"`+s.out.codes["a@x.com"]+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, true, env["user"].(map[string]interface{})["is_verified"])

	rr = s.do(http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookie := sessionCookie(t, rr)
	assert.NotContains(t, rr.Body.String(), cookie.Value)

	rr = s.do(http.MethodGet, "/api/v1/auth/check-auth", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"a@x.com"`)
	assert.NotContains(t, rr.Body.String(), "$2a$")
}

func TestRouter_CheckAuthRejections(t *testing.T) {
	s := newStack(t)

	noCookie := s.do(http.MethodGet, "/api/v1/auth/check-auth", "")
	forged := s.do(http.MethodGet, "/api/v1/auth/check-auth", "", &http.Cookie{Name: "token", Value: "eyJhbGciOiJub25lIn0.e30."})
	assert.Equal(t, http.StatusUnauthorized, noCookie.Code)
	assert.Equal(t, http.StatusUnauthorized, forged.Code)
	assert.Equal(t, noCookie.Body.String(), forged.Body.String())
}

func TestRouter_ExpiredSession(t *testing.T) {
	s := newStack(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/auth/signup", `{"email":"a@x.com","password":"pw1","name":"Al"}`).Code)
	cookie := sessionCookie(t, s.do(http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.com","password":"pw1"}`))

	*s.clock = s.clock.Add(8 * 24 * time.Hour)
	rr := s.do(http.MethodGet, "/api/v1/auth/check-auth", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_ResetPasswordFlow(t *testing.T) {
	s := newStack(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/auth/signup", `{"email":"a@x.com","password":"pw1","name":"Al"}`).Code)

	rr := s.do(http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	r := s.out.resets["a@x.com"]

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/auth/reset-password/"+r, `{"password":"pw2"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/auth/reset-password/"+r, `{"password":"pw2"}`).Code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.com","password":"pw2"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.com","password":"pw1"}`).Code)
}

func TestRouter_ForgotPasswordUnknown(t *testing.T) {
	s := newStack(t)
	rr := s.do(http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"ghost@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "user invalid")
}

func TestRouter_LogoutWithoutSession(t *testing.T) {
	s := newStack(t)
	rr := s.do(http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Less(t, sessionCookie(t, rr).MaxAge, 0)
}

func TestRouter_CORSAllowsCredentials(t *testing.T) {
	s := newStack(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newStack(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "").Code)
}
