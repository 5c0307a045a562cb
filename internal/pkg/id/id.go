package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string for the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt generates a ULID whose timestamp component is t, so ids minted under
// an injected clock still sort by that clock.
func NewAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
