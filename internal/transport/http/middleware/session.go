package middleware

import (
	"context"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Authenticator resolves a session token to an identity.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Session returns middleware that requires a valid session cookie and stores
// the identity it names in the request context. Every failure gets the same
// 401 body; the cause is logged at debug level.
func Session(auth Authenticator, cookies *CookieManager, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := auth.Authenticate(cookies.Read(r))
			if err != nil {
				log.DebugContext(r.Context(), "session rejected",
					"request_id", chimiddleware.GetReqID(r.Context()), "err", err)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "unauthorized - no valid session")
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(IdentityKey).(string)
	return id, ok && id != ""
}
