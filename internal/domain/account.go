package domain

import (
	"strings"
	"time"
)

// Account is the persisted credential record for one identity.
// Verification and Reset are nil unless a token of that purpose is pending.
type Account struct {
	AccountID           string        `json:"id"`
	Identity            string        `json:"email"`
	DisplayName         string        `json:"name"`
	CredentialDigest    string        `json:"-"`
	Verified            bool          `json:"is_verified"`
	Verification        *PendingToken `json:"-"`
	Reset               *PendingToken `json:"-"`
	LastAuthenticatedAt *time.Time    `json:"last_login,omitempty"`
	CreatedAt           time.Time     `json:"created"`
	UpdatedAt           time.Time     `json:"updated"`
}

// State is the lifecycle overlay of an account at a given instant.
type State struct {
	Verified     bool
	ResetPending bool
}

// StateAt reports the account state as seen at now. A pending token whose
// expiry is not strictly after now no longer counts.
func (a *Account) StateAt(now time.Time) State {
	return State{
		Verified:     a.Verified,
		ResetPending: a.Reset.ValidAt(now),
	}
}

// NormalizeIdentity returns the canonical form of an email identity.
func NormalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,max=72"`
}
