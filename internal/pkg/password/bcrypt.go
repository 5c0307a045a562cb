package password

import (
	"errors"
	"fmt"

	"github.com/go-auth-nosql/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Hasher produces and checks salted bcrypt digests.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using cost, falling back to bcrypt.DefaultCost
// when cost is outside bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns the bcrypt digest of secret. Secrets over bcrypt's 72 byte
// limit are invalid input, whatever their length in characters.
func (h *Hasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password longer than 72 bytes: %w", domain.ErrInvalidInput)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *Hasher) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

// Burn runs a comparison against a fixed digest so that lookups of unknown
// identities cost the same as a wrong password.
func (h *Hasher) Burn(secret string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(secret))
}
