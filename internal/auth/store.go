// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"context"
	"time"
)

// CredentialStore persists users, security profiles and sessions.
// Implementations translate engine-specific failures into ErrNotFound and
// the ErrConflict family; they never retry.
type CredentialStore interface {
	// FindByEmail returns the profile registered under email, compared
	// case-insensitively. Returns (nil, nil) when no profile matches.
	FindByEmail(ctx context.Context, email string) (*SecurityProfile, error)

	// FindByUserID returns the profile of a user. Returns ErrNotFound if absent.
	FindByUserID(ctx context.Context, userID int64) (*SecurityProfile, error)

	// FindUser returns a user by ID. Returns ErrNotFound if absent.
	FindUser(ctx context.Context, userID int64) (*User, error)

	// CreateUser inserts a new user and returns it with its assigned ID.
	CreateUser(ctx context.Context, firstName, lastName string) (*User, error)

	// CreateSecurityProfile inserts an unverified, inactive profile with a resend
	// count of 1. Returns ErrEmailTaken or ErrPhoneTaken on duplicates.
	CreateSecurityProfile(ctx context.Context, p NewSecurityProfile) (*SecurityProfile, error)

	// MarkVerified sets EmailVerified and AccountActive in a single write.
	// Returns ErrNotFound if the profile does not exist.
	MarkVerified(ctx context.Context, userID int64, at time.Time) error

	// UpdateCode replaces the verification code of the profile registered under email.
	// Returns ErrNotFound if the profile does not exist.
	UpdateCode(ctx context.Context, email string, update CodeUpdate) error

	// SetOnline updates the online flag of a profile.
	// Returns ErrNotFound if the profile does not exist.
	SetOnline(ctx context.Context, userID int64, online bool) error

	// CreateSession appends a session. Returns ErrTokenCollision if the token
	// hash is already recorded.
	CreateSession(ctx context.Context, session *Session) error

	// ResetResendCounts returns every unverified profile whose resend window
	// started before the cutoff and whose count is above 1 to a count of 1,
	// starting a new window at now. Returns the number of profiles reset.
	ResetResendCounts(ctx context.Context, startedBefore, now time.Time) (int64, error)

	// InTx runs fn against a store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx CredentialStore) error) error
}
