package middleware

import (
	"net/http"
	"strings"
	"time"
)

// CookieManager writes and reads the session cookie.
type CookieManager struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(name, domain string, secure bool, sameSite string) *CookieManager {
	ss := http.SameSiteStrictMode
	switch strings.ToLower(sameSite) {
	case "none":
		ss = http.SameSiteNoneMode
	case "lax":
		ss = http.SameSiteLaxMode
	}
	return &CookieManager{Name: name, Domain: domain, Secure: secure, SameSite: ss}
}

// Set stores token in an http-only cookie that lives until expiresAt.
func (c *CookieManager) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Read returns the session token, or "" when the cookie is absent.
func (c *CookieManager) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
