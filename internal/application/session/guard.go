// Package session resolves session tokens to account identities.
package session

import (
	"fmt"

	"github.com/go-auth-nosql/internal/domain"
)

var (
	ErrNoSession      = fmt.Errorf("no session token: %w", domain.ErrUnauthenticated)
	ErrSessionInvalid = fmt.Errorf("session token invalid: %w", domain.ErrUnauthenticated)
)

// Verifier returns the identity a session token names.
type Verifier interface {
	VerifySession(token string) (string, error)
}

type Guard struct {
	verifier Verifier
}

func NewGuard(v Verifier) *Guard {
	return &Guard{verifier: v}
}

// Authenticate returns the identity for token. Both failures wrap
// domain.ErrUnauthenticated; the cause stays attached for logging.
func (g *Guard) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	identity, err := g.verifier.VerifySession(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}
	return identity, nil
}
