// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package signing issues and verifies tamper-proof image request tokens.
// A token is an HS256 JWT whose "params" claim carries the template
// parameters, so a plain GET URL can describe an image without letting
// callers forge arbitrary ones.
package signing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sharemeow/internal/templates"
)

// Issuer is stamped into every token and required on verification.
const Issuer = "sharemeow"

var (
	// ErrNoSecret is returned when a Signer is created without a secret.
	ErrNoSecret = errors.New("signing: secret is required")

	// ErrInvalidToken is returned for any token that fails verification.
	ErrInvalidToken = errors.New("signing: invalid token")
)

// claims is the token payload.
type claims struct {
	Params templates.Params `json:"params"`
	jwt.RegisteredClaims
}

// Signer signs and verifies parameter tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// New creates a Signer. The secret must not be empty.
func New(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a token carrying params.
func (s *Signer) Sign(params templates.Params) (string, error) {
	c := claims{
		Params: params.Clone(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign params: %w", err)
	}
	return token, nil
}

// Verify checks the token signature and returns the params it carries.
// Only HS256 tokens from this issuer are accepted.
func (s *Signer) Verify(token string) (templates.Params, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if c.Params == nil {
		return nil, fmt.Errorf("%w: missing params claim", ErrInvalidToken)
	}
	return c.Params, nil
}
