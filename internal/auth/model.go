// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"time"
)

// User is the identity created at registration. It is never modified afterwards.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// SecurityProfile holds the credentials and verification state of a User.
// Each User owns exactly one profile.
type SecurityProfile struct {
	UserID           int64
	Email            string
	PhoneNumber      *string // nil when not provided
	PasswordHash     string
	EmailVerified    bool
	AccountActive    bool
	Online           bool
	VerificationCode string
	CodeExpiresAt    time.Time
	EmailResendCount int
	PhoneResendCount int
	// ResendWindowStartedAt marks the start of the period EmailResendCount covers.
	ResendWindowStartedAt time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CodeExpiredAt reports whether the stored code is expired at t.
// A code is still valid at exactly its expiry instant.
func (p *SecurityProfile) CodeExpiredAt(t time.Time) bool {
	return t.After(p.CodeExpiresAt)
}

// NewSecurityProfile carries the fields required to create a SecurityProfile.
// The store fills in the remaining defaults.
type NewSecurityProfile struct {
	UserID        int64
	Email         string
	PhoneNumber   *string
	PasswordHash  string
	Code          string
	CodeExpiresAt time.Time
	CreatedAt     time.Time
}

// CodeUpdate replaces the verification code of a profile.
type CodeUpdate struct {
	Code            string
	ExpiresAt       time.Time
	ResendCount     int
	WindowStartedAt time.Time
	UpdatedAt       time.Time
}
