// Package token issues and verifies the short-lived tokens carried in
// notifications and the session tokens carried in cookies.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
	pkgtoken "github.com/go-auth-nosql/internal/pkg/token"
)

const (
	// resetTokenBytes gives reset tokens 160 bits of entropy.
	resetTokenBytes = 20
	minCodeDigits   = 6
	// maxCodeDraws bounds re-draws when a verification code collides with a pending one.
	maxCodeDraws = 5
)

var (
	ErrTokenNotFound = fmt.Errorf("token not found: %w", domain.ErrInvalidOrExpired)
	ErrTokenExpired  = fmt.Errorf("token expired: %w", domain.ErrInvalidOrExpired)
)

// Lookup finds the account holding a pending token digest.
type Lookup interface {
	FindByToken(ctx context.Context, purpose domain.TokenPurpose, digest string) (*domain.Account, error)
}

// SessionCodec signs and verifies session tokens.
type SessionCodec interface {
	Sign(identity string) (string, time.Time, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type IssuerDeps struct {
	Store      Lookup
	Sessions   SessionCodec
	Clock      func() time.Time
	CodeDigits int
}

type Issuer struct {
	store      Lookup
	sessions   SessionCodec
	now        func() time.Time
	codeDigits int
}

func NewIssuer(deps IssuerDeps) *Issuer {
	digits := deps.CodeDigits
	if digits < minCodeDigits {
		digits = minCodeDigits
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Issuer{store: deps.Store, sessions: deps.Sessions, now: clock, codeDigits: digits}
}

// Now is the clock every expiry decision uses.
func (i *Issuer) Now() time.Time { return i.now() }

// Issue generates a raw token for purpose and the pending value to store.
// The raw token only ever leaves through a notification.
func (i *Issuer) Issue(ctx context.Context, purpose domain.TokenPurpose) (string, domain.PendingToken, error) {
	switch purpose {
	case domain.PurposeVerification:
		raw, err := i.drawCode(ctx)
		if err != nil {
			return "", domain.PendingToken{}, err
		}
		return raw, i.pending(raw, domain.VerificationTokenTTL), nil
	case domain.PurposeReset:
		raw, err := pkgtoken.NewOpaque(resetTokenBytes)
		if err != nil {
			return "", domain.PendingToken{}, fmt.Errorf("generate reset token: %w", err)
		}
		return raw, i.pending(raw, domain.ResetTokenTTL), nil
	}
	return "", domain.PendingToken{}, fmt.Errorf("unknown token purpose %q", purpose)
}

func (i *Issuer) pending(raw string, ttl time.Duration) domain.PendingToken {
	return domain.PendingToken{Digest: pkgtoken.Digest(raw), ExpiresAt: i.now().Add(ttl)}
}

// drawCode returns a numeric code whose digest no account currently holds.
func (i *Issuer) drawCode(ctx context.Context) (string, error) {
	for n := 0; n < maxCodeDraws; n++ {
		code, err := pkgtoken.NewNumericCode(i.codeDigits)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		_, err = i.store.FindByToken(ctx, domain.PurposeVerification, pkgtoken.Digest(code))
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no unused verification code after %d draws", maxCodeDraws)
}

// Verify resolves candidate to the account holding it. A token whose expiry
// equals the current instant is expired.
func (i *Issuer) Verify(ctx context.Context, candidate string, purpose domain.TokenPurpose) (*domain.Account, error) {
	if candidate == "" {
		return nil, ErrTokenNotFound
	}
	digest := pkgtoken.Digest(candidate)
	a, err := i.store.FindByToken(ctx, purpose, digest)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	t := a.Verification
	if purpose == domain.PurposeReset {
		t = a.Reset
	}
	if t == nil || t.Digest != digest {
		return nil, ErrTokenNotFound
	}
	if !t.ValidAt(i.now()) {
		return nil, ErrTokenExpired
	}
	return a, nil
}

// IssueSession signs a session token naming identity.
func (i *Issuer) IssueSession(identity string) (string, time.Time, error) {
	return i.sessions.Sign(identity)
}

// VerifySession returns the identity a valid session token names.
func (i *Issuer) VerifySession(tok string) (string, error) {
	claims, err := i.sessions.Verify(tok)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
