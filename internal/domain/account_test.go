package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingToken_ValidAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var none *PendingToken
	assert.False(t, none.ValidAt(now))

	tok := &PendingToken{Digest: "d", ExpiresAt: now.Add(time.Second)}
	assert.True(t, tok.ValidAt(now))
	// expiry equal to now counts as expired
	assert.False(t, tok.ValidAt(now.Add(time.Second)))
	assert.False(t, tok.ValidAt(now.Add(2*time.Second)))
}

func TestAccount_StateAt(t *testing.T) {
	now := time.Now().UTC()
	a := &Account{Verified: true, Reset: &PendingToken{Digest: "d", ExpiresAt: now.Add(time.Hour)}}
	assert.Equal(t, State{Verified: true, ResetPending: true}, a.StateAt(now))
	assert.Equal(t, State{Verified: true, ResetPending: false}, a.StateAt(now.Add(time.Hour)))
}

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeIdentity("  A@X.com "))
}
