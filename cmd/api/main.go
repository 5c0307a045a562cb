package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-auth-nosql/internal/application/auth"
	"github.com/go-auth-nosql/internal/application/notification"
	"github.com/go-auth-nosql/internal/application/session"
	"github.com/go-auth-nosql/internal/application/token"
	"github.com/go-auth-nosql/internal/config"
	"github.com/go-auth-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
	"github.com/go-auth-nosql/internal/infrastructure/memory"
	s3infra "github.com/go-auth-nosql/internal/infrastructure/s3"
	"github.com/go-auth-nosql/internal/infrastructure/smtp"
	"github.com/go-auth-nosql/internal/infrastructure/sns"
	"github.com/go-auth-nosql/internal/observability"
	"github.com/go-auth-nosql/internal/pkg/password"
	transporthttp "github.com/go-auth-nosql/internal/transport/http"
	"github.com/go-auth-nosql/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ctx := context.Background()
	logger := slog.Default()
	clock := func() time.Time { return time.Now().UTC() }

	accounts, err := newAccountStore(ctx, cfg)
	if err != nil {
		return err
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		// Development only; Validate rejects an empty secret in production.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions end on restart")
	}
	jwtProvider, err := jwtinfra.NewProvider(secret, cfg.SessionTTL, clock)
	if err != nil {
		return err
	}
	issuer := token.NewIssuer(token.IssuerDeps{
		Store:      accounts,
		Sessions:   jwtProvider,
		Clock:      clock,
		CodeDigits: cfg.VerificationCodeDigits,
	})

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}

	authSvc := auth.NewService(auth.ServiceDeps{
		Accounts:              accounts,
		Tokens:                issuer,
		Secrets:               password.NewHasher(cfg.BcryptCost),
		Notifier:              notifier,
		Logger:                logger,
		UniformForgotPassword: cfg.UniformForgotPassword,
	})

	deps := &transporthttp.Deps{
		Auth:    authSvc,
		Guard:   session.NewGuard(issuer),
		Cookies: middleware.NewCookieManager(cfg.SessionCookieName, cfg.CookieDomain, cfg.SecureCookies(), cfg.CookieSameSite),
		Logger:  logger,
	}
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		observability.RegisterMetrics(reg)
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.NotifierTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver, "notifier", cfg.NotifierDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// accountStore is what the issuer and the lifecycle need from persistence.
type accountStore interface {
	auth.AccountStore
	token.Lookup
}

func newAccountStore(ctx context.Context, cfg *config.Config) (accountStore, error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("using in-memory account store; data is lost on restart")
		return memory.NewAccountRepo(), nil
	}
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
		return nil, fmt.Errorf("bootstrap dynamo tables: %w", err)
	}
	return dynamo.NewAccountRepo(client, cfg.DynamoTables.Accounts), nil
}

func newNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*notification.Service, error) {
	var sender notification.Sender
	switch cfg.NotifierDriver {
	case "smtp":
		sender = smtp.NewMailer(cfg)
	case "sns":
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sender = sns.NewPublisher(client, cfg.SNSTopicARN)
	default:
		sender = notification.NewLogSender(logger)
	}

	var templates notification.TemplateSource
	if cfg.TemplateBucket != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		templates = s3infra.NewTemplateStore(client, cfg.TemplateBucket, cfg.TemplatePrefix)
	}

	return notification.NewService(ctx, notification.ServiceDeps{
		Sender:    sender,
		Templates: templates,
		Limiter:   rate.NewLimiter(rate.Limit(cfg.NotifierRatePerSec), cfg.NotifierBurst),
		Timeout:   cfg.NotifierTimeout,
		ClientURL: cfg.ClientURL,
		Logger:    logger,
	})
}
