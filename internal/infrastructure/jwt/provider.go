package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-nosql/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the session JWT payload. The subject is the account identity;
// nothing else about the account is carried.
type Claims struct {
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session JWTs.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewProvider builds a Provider. now may be nil, in which case time.Now is used.
func NewProvider(secret []byte, expiry time.Duration, now func() time.Time) (*Provider, error) {
	if len(secret) == 0 {
		return nil, errors.New("session signing secret is empty")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("session expiry must be positive, got %s", expiry)
	}
	if now == nil {
		now = time.Now
	}
	return &Provider{secret: secret, expiry: expiry, now: now}, nil
}

// Sign issues a session token for identity and returns it with its expiry.
func (p *Provider) Sign(identity string) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.expiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ID:        id.NewAt(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature and expiry and returns the claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}
	return claims, nil
}
