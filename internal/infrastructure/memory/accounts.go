// Package memory holds process-local stores used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-auth-nosql/internal/domain"
)

// AccountRepo keeps accounts in a map keyed by identity. Every operation runs
// under one mutex, so each read-modify-write on a record is atomic.
type AccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.Identity]; ok {
		return fmt.Errorf("account %s: %w", a.Identity, domain.ErrAlreadyExists)
	}
	r.accounts[a.Identity] = clone(a)
	return nil
}

func (r *AccountRepo) Get(_ context.Context, identity string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[identity]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return clone(a), nil
}

func (r *AccountRepo) FindByToken(_ context.Context, purpose domain.TokenPurpose, digest string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if t := pending(a, purpose); t != nil && t.Digest == digest {
			return clone(a), nil
		}
	}
	return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
}

func (r *AccountRepo) PutToken(_ context.Context, identity string, purpose domain.TokenPurpose, t domain.PendingToken, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[identity]
	if !ok {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	tok := t
	switch purpose {
	case domain.PurposeVerification:
		a.Verification = &tok
	case domain.PurposeReset:
		a.Reset = &tok
	default:
		return fmt.Errorf("unknown token purpose %q", purpose)
	}
	a.UpdatedAt = now
	return nil
}

func (r *AccountRepo) ConsumeVerification(_ context.Context, identity, digest string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[identity]
	if !ok || a.Verification == nil || a.Verification.Digest != digest || !a.Verification.ValidAt(now) {
		return nil, fmt.Errorf("verification token: %w", domain.ErrInvalidOrExpired)
	}
	a.Verified = true
	a.Verification = nil
	a.UpdatedAt = now
	return clone(a), nil
}

func (r *AccountRepo) ConsumeReset(_ context.Context, identity, digest string, now time.Time, credentialDigest string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[identity]
	if !ok || a.Reset == nil || a.Reset.Digest != digest || !a.Reset.ValidAt(now) {
		return nil, fmt.Errorf("reset token: %w", domain.ErrInvalidOrExpired)
	}
	a.CredentialDigest = credentialDigest
	a.Reset = nil
	a.UpdatedAt = now
	return clone(a), nil
}

func (r *AccountRepo) RecordLogin(_ context.Context, identity string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[identity]
	if !ok {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	t := at
	a.LastAuthenticatedAt = &t
	a.UpdatedAt = at
	return nil
}

func pending(a *domain.Account, purpose domain.TokenPurpose) *domain.PendingToken {
	switch purpose {
	case domain.PurposeVerification:
		return a.Verification
	case domain.PurposeReset:
		return a.Reset
	}
	return nil
}

// clone copies a so callers never share pointers with the map.
func clone(a *domain.Account) *domain.Account {
	c := *a
	if a.Verification != nil {
		v := *a.Verification
		c.Verification = &v
	}
	if a.Reset != nil {
		rs := *a.Reset
		c.Reset = &rs
	}
	if a.LastAuthenticatedAt != nil {
		t := *a.LastAuthenticatedAt
		c.LastAuthenticatedAt = &t
	}
	return &c
}
