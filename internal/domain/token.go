package domain

import "time"

// TokenPurpose names what a short-lived token unlocks.
type TokenPurpose string

const (
	PurposeVerification TokenPurpose = "verification"
	PurposeReset        TokenPurpose = "reset"
)

// Lifetimes of short-lived tokens, fixed at issuance.
const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = time.Hour
)

// PendingToken is a short-lived token as stored on an account: the digest of
// the raw value and its expiry travel together.
type PendingToken struct {
	Digest    string
	ExpiresAt time.Time
}

// ValidAt reports whether the token exists and expires strictly after now.
func (t *PendingToken) ValidAt(now time.Time) bool {
	return t != nil && t.ExpiresAt.After(now)
}
