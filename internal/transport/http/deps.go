package http

import (
	"log/slog"
	"net/http"

	"github.com/go-auth-nosql/internal/application/auth"
	"github.com/go-auth-nosql/internal/transport/http/middleware"
)

// Deps holds everything the router wires into handlers. main builds each
// value once and owns its lifecycle.
type Deps struct {
	Auth    auth.Service
	Guard   middleware.Authenticator
	Cookies *middleware.CookieManager
	// Metrics serves /metrics; nil disables the route.
	Metrics http.Handler
	Logger  *slog.Logger
}
