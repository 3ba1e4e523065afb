// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import "context"

// Notifier delivers verification codes to their recipients.
//
// Implementations return an error wrapping ErrInvalidRecipient when the address is
// permanently rejected. Any other error is treated as a transient delivery failure.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}
