// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/verifid/verifid/internal/token"
)

// DefaultSessionTTL is how long an issued token stays valid.
const DefaultSessionTTL = time.Hour

// Session records a successful login.
type Session struct {
	ID        ulid.ULID
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session for a signed token.
func NewSession(userID int64, rawToken string, createdAt, expiresAt time.Time) (*Session, error) {
	if userID <= 0 {
		return nil, oops.Code("SESSION_INVALID_USER").With("user_id", userID).Errorf("user ID must be positive")
	}
	if rawToken == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry must be after creation")
	}
	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: HashSessionToken(rawToken),
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// HashSessionToken computes the SHA256 hash of a session token.
// Only the hash is persisted.
func HashSessionToken(rawToken string) string {
	h := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(h[:])
}

// TokenSigner signs and verifies session tokens.
type TokenSigner interface {
	Sign(email string, userID int64, issuedAt, expiresAt time.Time) (string, error)
	Parse(raw string) (*token.Claims, error)
}

// SessionManager issues signed tokens and records the sessions they open.
type SessionManager struct {
	store  CredentialStore
	signer TokenSigner
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionManager creates a SessionManager. A zero ttl selects DefaultSessionTTL.
func NewSessionManager(store CredentialStore, signer TokenSigner, ttl time.Duration, opts ...Option) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("credential store is required")
	}
	if signer == nil {
		return nil, oops.Code("AUTH_INVALID_OPTION").Errorf("token signer is required")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	if ttl < 0 {
		return nil, oops.Code("AUTH_INVALID_OPTION").With("ttl", ttl).Errorf("session TTL must be positive")
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &SessionManager{store: store, signer: signer, ttl: ttl, logger: o.logger, now: o.now}, nil
}

// IssueToken signs a token carrying email and userID. It returns the token and its expiry.
func (m *SessionManager) IssueToken(email string, userID int64) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	raw, err := m.signer.Sign(email, userID, issuedAt, expiresAt)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_ISSUE_FAILED").
			With("user_id", userID).
			Errorf("sign token: %s", err.Error())
	}
	return raw, expiresAt, nil
}

// RecordSession marks the user online and appends a session for rawToken.
// Returns a Conflict error if the token was already recorded.
func (m *SessionManager) RecordSession(ctx context.Context, userID int64, rawToken string) (*Session, error) {
	now := m.now()
	session, err := NewSession(userID, rawToken, now, now.Add(m.ttl))
	if err != nil {
		return nil, err
	}

	if err := m.store.SetOnline(ctx, userID, true); err != nil {
		return nil, internalError(ctx, m.logger, "SESSION_RECORD_FAILED", "set online", err)
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("SESSION_TOKEN_COLLISION").
				With("user_id", userID).
				Errorf("session token already recorded")
		}
		return nil, internalError(ctx, m.logger, "SESSION_RECORD_FAILED", "create session", err)
	}
	return session, nil
}

// ParseToken verifies rawToken and returns its claims.
func (m *SessionManager) ParseToken(rawToken string) (*token.Claims, error) {
	if rawToken == "" {
		return nil, oops.Code("SESSION_TOKEN_INVALID").Errorf("session token cannot be empty")
	}
	claims, err := m.signer.Parse(rawToken)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, token.ErrExpired):
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	default:
		return nil, oops.Code("SESSION_TOKEN_INVALID").Errorf("invalid session token")
	}
}
