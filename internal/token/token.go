// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package token signs and parses the bearer tokens handed out at login.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSecretLength is the shortest HMAC secret accepted, in bytes.
const MinSecretLength = 32

// Parse failures.
var (
	ErrInvalid = errors.New("token is invalid")
	ErrExpired = errors.New("token has expired")
)

// Claims is the token payload. Subject holds the decimal user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the user ID carried in the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, oops.Code("TOKEN_INVALID_SUBJECT").With("subject", c.Subject).Wrap(err)
	}
	return id, nil
}

// HMACSigner issues HS256 tokens with a shared secret.
type HMACSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures an HMACSigner.
type Option func(*HMACSigner)

// WithIssuer sets the iss claim and requires it when parsing.
func WithIssuer(issuer string) Option {
	return func(s *HMACSigner) { s.issuer = issuer }
}

// WithClock replaces time.Now for expiry checks during parsing.
func WithClock(now func() time.Time) Option {
	return func(s *HMACSigner) { s.now = now }
}

// NewHMACSigner creates a signer. The secret must be at least MinSecretLength bytes.
func NewHMACSigner(secret []byte, opts ...Option) (*HMACSigner, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_SECRET_TOO_SHORT").
			With("length", len(secret)).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	s := &HMACSigner{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign returns a signed token for the user. Every token carries a unique ID,
// so two tokens issued in the same second still differ.
func (s *HMACSigner) Sign(email string, userID int64, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("user_id", userID).Wrap(err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
// Failures wrap ErrExpired or ErrInvalid.
func (s *HMACSigner) Parse(raw string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.With("reason", err.Error()).Wrap(ErrExpired)
		}
		return nil, oops.With("reason", err.Error()).Wrap(ErrInvalid)
	}
	if !parsed.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
