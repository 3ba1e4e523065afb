// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package auth implements email verification and the session lifecycle.
//
// # Domain Types
//
// A User owns exactly one SecurityProfile, which holds the password hash,
// the pending verification code and the verification flags. A Session is
// appended for every successful login; only a hash of the token is kept.
//
// # Services
//
// Service types coordinate domain operations:
//   - CodeIssuer - issue, resend and verify email codes under a ResendQuota
//   - SessionManager - sign tokens and record sessions
//   - Service - login and registration
//
// All of them depend on a CredentialStore and are created with New*
// constructors that validate dependencies.
//
// # Errors
//
// Failures are samber/oops errors with a code. KindOf maps a code to the
// Kind a transport should report. Unexpected store or delivery failures are
// logged where they happen and surface as KindInternal.
package auth
