// Package auth implements the credential lifecycle: signup, email
// verification, login, and password recovery.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/go-auth-nosql/internal/observability"
	"github.com/go-auth-nosql/internal/pkg/id"
	"github.com/go-auth-nosql/internal/pkg/validate"
)

// errLoginFailed is the only error login returns for a bad identity or password.
var errLoginFailed = fmt.Errorf("invalid credentials: %w", domain.ErrInvalidCredentials)

// AccountStore is the persistence the lifecycle needs. Consume* must apply
// their update only if the stored token still matches and expires after now.
type AccountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, identity string) (*domain.Account, error)
	PutToken(ctx context.Context, identity string, purpose domain.TokenPurpose, t domain.PendingToken, now time.Time) error
	ConsumeVerification(ctx context.Context, identity, digest string, now time.Time) (*domain.Account, error)
	ConsumeReset(ctx context.Context, identity, digest string, now time.Time, credentialDigest string) (*domain.Account, error)
	RecordLogin(ctx context.Context, identity string, at time.Time) error
}

type TokenIssuer interface {
	Now() time.Time
	Issue(ctx context.Context, purpose domain.TokenPurpose) (string, domain.PendingToken, error)
	Verify(ctx context.Context, candidate string, purpose domain.TokenPurpose) (*domain.Account, error)
	IssueSession(identity string) (string, time.Time, error)
}

type SecretStore interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
	Burn(secret string)
}

// Notifier delivers account notifications. Failures are logged and counted by
// the implementation; the lifecycle never rolls back on them.
type Notifier interface {
	SendVerification(ctx context.Context, to, code string) error
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, token string) error
	SendResetSuccess(ctx context.Context, to string) error
}

type ServiceDeps struct {
	Accounts AccountStore
	Tokens   TokenIssuer
	Secrets  SecretStore
	Notifier Notifier
	Logger   *slog.Logger
	// UniformForgotPassword makes forgot-password succeed for unknown identities.
	UniformForgotPassword bool
}

// Session is a signed session token and its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error)
	VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) (*domain.Account, error)
	ResendVerification(ctx context.Context, req domain.EmailRequest) error
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, *Session, error)
	ForgotPassword(ctx context.Context, req domain.EmailRequest) error
	ResetPassword(ctx context.Context, token string, req domain.ResetPasswordRequest) error
	Logout(ctx context.Context)
	CheckAuth(ctx context.Context, identity string) (*domain.Account, error)
}

type service struct {
	accounts      AccountStore
	tokens        TokenIssuer
	secrets       SecretStore
	notifier      Notifier
	log           *slog.Logger
	uniformForgot bool
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{
		accounts:      deps.Accounts,
		tokens:        deps.Tokens,
		secrets:       deps.Secrets,
		notifier:      deps.Notifier,
		log:           log,
		uniformForgot: deps.UniformForgotPassword,
	}
}

// observe records the outcome of one transition.
func (s *service) observe(ctx context.Context, transition, identity string, err error) {
	observability.RecordTransition(transition, err)
	if err != nil {
		s.log.DebugContext(ctx, "transition rejected", "transition", transition, "identity", identity, "err", err)
		return
	}
	s.log.InfoContext(ctx, "transition", "transition", transition, "identity", identity)
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (acct *domain.Account, err error) {
	identity := domain.NormalizeIdentity(req.Email)
	defer func() { s.observe(ctx, TransitionSignup, identity, err) }()

	req.Email = identity
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	digest, err := s.secrets.Hash(req.Password)
	if errors.Is(err, domain.ErrInvalidInput) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, pending, err := s.tokens.Issue(ctx, domain.PurposeVerification)
	if err != nil {
		return nil, err
	}
	now := s.tokens.Now()
	a := &domain.Account{
		AccountID:        id.NewAt(now),
		Identity:         identity,
		DisplayName:      req.Name,
		CredentialDigest: digest,
		Verification:     &pending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("user already exists: %w", domain.ErrAlreadyExists)
		}
		return nil, err
	}

	_ = s.notifier.SendVerification(ctx, identity, code)
	return a, nil
}

func (s *service) VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) (acct *domain.Account, err error) {
	identity := ""
	defer func() { s.observe(ctx, TransitionVerifyEmail, identity, err) }()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	a, err := s.tokens.Verify(ctx, req.Code, domain.PurposeVerification)
	if err != nil {
		return nil, tokenError("verification code", err)
	}
	identity = a.Identity
	now := s.tokens.Now()
	if !permitted(TransitionVerifyEmail, a.StateAt(now)) {
		return nil, fmt.Errorf("account already verified: %w", domain.ErrInvalidOrExpired)
	}
	updated, err := s.accounts.ConsumeVerification(ctx, a.Identity, a.Verification.Digest, now)
	if err != nil {
		return nil, tokenError("verification code", err)
	}

	_ = s.notifier.SendWelcome(ctx, updated.Identity, updated.DisplayName)
	return updated, nil
}

// ResendVerification replaces the pending verification code of an unverified
// account. Unknown and already verified identities succeed silently.
func (s *service) ResendVerification(ctx context.Context, req domain.EmailRequest) (err error) {
	identity := domain.NormalizeIdentity(req.Email)
	defer func() { s.observe(ctx, TransitionResendVerification, identity, err) }()

	req.Email = identity
	if err := validate.Struct(req); err != nil {
		return err
	}
	a, err := s.accounts.Get(ctx, identity)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !permitted(TransitionResendVerification, a.StateAt(s.tokens.Now())) {
		return nil
	}
	code, pending, err := s.tokens.Issue(ctx, domain.PurposeVerification)
	if err != nil {
		return err
	}
	if err := s.accounts.PutToken(ctx, identity, domain.PurposeVerification, pending, s.tokens.Now()); err != nil {
		return err
	}

	_ = s.notifier.SendVerification(ctx, identity, code)
	return nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (acct *domain.Account, sess *Session, err error) {
	identity := domain.NormalizeIdentity(req.Email)
	defer func() { s.observe(ctx, TransitionLogin, identity, err) }()

	req.Email = identity
	if err := validate.Struct(req); err != nil {
		return nil, nil, err
	}
	a, err := s.accounts.Get(ctx, identity)
	if errors.Is(err, domain.ErrNotFound) {
		s.secrets.Burn(req.Password)
		return nil, nil, errLoginFailed
	}
	if err != nil {
		return nil, nil, err
	}
	if !s.secrets.Verify(req.Password, a.CredentialDigest) {
		return nil, nil, errLoginFailed
	}

	now := s.tokens.Now()
	if err := s.accounts.RecordLogin(ctx, identity, now); err != nil {
		return nil, nil, err
	}
	token, exp, err := s.tokens.IssueSession(identity)
	if err != nil {
		return nil, nil, err
	}
	a.LastAuthenticatedAt = &now
	a.UpdatedAt = now
	return a, &Session{Token: token, ExpiresAt: exp}, nil
}

// ForgotPassword issues a reset token and mails the reset link. Unknown
// identities get a distinct "user invalid" failure unless uniform responses
// are configured.
func (s *service) ForgotPassword(ctx context.Context, req domain.EmailRequest) (err error) {
	identity := domain.NormalizeIdentity(req.Email)
	defer func() { s.observe(ctx, TransitionForgotPassword, identity, err) }()

	req.Email = identity
	if err := validate.Struct(req); err != nil {
		return err
	}
	if _, err := s.accounts.Get(ctx, identity); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if s.uniformForgot {
			return nil
		}
		return fmt.Errorf("user invalid: %w", domain.ErrInvalidCredentials)
	}
	token, pending, err := s.tokens.Issue(ctx, domain.PurposeReset)
	if err != nil {
		return err
	}
	if err := s.accounts.PutToken(ctx, identity, domain.PurposeReset, pending, s.tokens.Now()); err != nil {
		return err
	}

	_ = s.notifier.SendPasswordReset(ctx, identity, token)
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token string, req domain.ResetPasswordRequest) (err error) {
	identity := ""
	defer func() { s.observe(ctx, TransitionResetPassword, identity, err) }()

	if err := validate.Struct(req); err != nil {
		return err
	}
	a, err := s.tokens.Verify(ctx, token, domain.PurposeReset)
	if err != nil {
		return tokenError("reset token", err)
	}
	identity = a.Identity
	now := s.tokens.Now()
	if !permitted(TransitionResetPassword, a.StateAt(now)) {
		return fmt.Errorf("invalid or expired reset token: %w", domain.ErrInvalidOrExpired)
	}
	digest, err := s.secrets.Hash(req.Password)
	if errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.accounts.ConsumeReset(ctx, a.Identity, a.Reset.Digest, now, digest); err != nil {
		return tokenError("reset token", err)
	}

	_ = s.notifier.SendResetSuccess(ctx, identity)
	return nil
}

// Logout has no server-side state to clear; the transport drops the cookie.
func (s *service) Logout(ctx context.Context) {
	s.observe(ctx, TransitionLogout, "", nil)
}

func (s *service) CheckAuth(ctx context.Context, identity string) (acct *domain.Account, err error) {
	defer func() { s.observe(ctx, TransitionCheckAuth, identity, err) }()

	a, err := s.accounts.Get(ctx, identity)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("account no longer exists: %w", domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// tokenError gives missing, expired and already consumed tokens one message.
// Store failures pass through unchanged.
func tokenError(what string, err error) error {
	if errors.Is(err, domain.ErrInvalidOrExpired) {
		return fmt.Errorf("invalid or expired %s: %w", what, err)
	}
	return err
}
