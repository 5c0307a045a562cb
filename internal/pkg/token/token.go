package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewOpaque generates a cryptographically random hex token from n random bytes.
func NewOpaque(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate opaque token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewNumericCode generates a zero-padded decimal code of the given length.
func NewNumericCode(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("code length must be positive, got %d", digits)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate numeric code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// Digest returns the SHA-256 hex digest under which a raw token is stored.
func Digest(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
