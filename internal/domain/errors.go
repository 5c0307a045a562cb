package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOrExpired   = errors.New("invalid or expired")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrDependency         = errors.New("dependency failure")
	ErrNotFound           = errors.New("not found")
)

// Error kinds exposed to clients and used as metric outcomes.
const (
	KindInvalidInput       = "invalid_input"
	KindAlreadyExists      = "already_exists"
	KindInvalidCredentials = "invalid_credentials"
	KindInvalidOrExpired   = "invalid_or_expired"
	KindUnauthenticated    = "unauthenticated"
	KindDependency         = "dependency_failure"
	KindInternal           = "internal"
)

// KindOf classifies err by the first sentinel it wraps. ErrNotFound has no
// kind of its own; callers translate it before it reaches a boundary.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrInvalidOrExpired):
		return KindInvalidOrExpired
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrDependency):
		return KindDependency
	}
	return KindInternal
}
