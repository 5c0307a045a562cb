package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-auth-nosql/internal/application/auth"
	"github.com/go-auth-nosql/internal/domain"
	"github.com/go-auth-nosql/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps request bodies; every auth payload is a few short fields.
const maxBodyBytes = 1 << 16

// AuthHandler handles the credential lifecycle endpoints.
type AuthHandler struct {
	svc     auth.Service
	cookies *middleware.CookieManager
}

func NewAuthHandler(svc auth.Service, cookies *middleware.CookieManager) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadBody(w)
		return false
	}
	return true
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "user created successfully", a)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.svc.VerifyEmail(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "email verified successfully", a)
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResendVerification(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "if the account exists and is unverified, a new code has been sent", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	a, sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cookies.Set(w, sess.Token, sess.ExpiresAt)
	writeOK(w, http.StatusOK, "logged in successfully", a)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context())
	h.cookies.Clear(w)
	writeOK(w, http.StatusOK, "logged out successfully", nil)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "password reset link sent to your email", nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "password reset successful", nil)
}

func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}
	a, err := h.svc.CheckAuth(r.Context(), identity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", a)
}
