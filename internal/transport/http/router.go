package http

import (
	"net/http"

	"github.com/go-auth-nosql/internal/config"
	"github.com/go-auth-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-nosql/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Auth, deps.Cookies)
	sessionMw := appmiddleware.Session(deps.Guard, deps.Cookies, deps.Logger)

	r.Get("/health", healthH.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", authH.Signup)
		r.Post("/verify-email", authH.VerifyEmail)
		r.Post("/resend-verification", authH.ResendVerification)
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)
		r.Post("/forgot-password", authH.ForgotPassword)
		r.Post("/reset-password/{token}", authH.ResetPassword)

		r.With(sessionMw).Get("/check-auth", authH.CheckAuth)
	})

	return r
}
