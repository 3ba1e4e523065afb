// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifid/verifid/internal/token"
	"github.com/verifid/verifid/pkg/errutil"
)

var testSecret = []byte(strings.Repeat("s", token.MinSecretLength))

func TestNewHMACSigner_RejectsShortSecret(t *testing.T) {
	_, err := token.NewHMACSigner([]byte("short"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "TOKEN_SECRET_TOO_SHORT")
}

func TestHMACSigner_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, err := token.NewHMACSigner(testSecret, token.WithIssuer("verifid"), token.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	raw, err := signer.Sign("juan@example.com", 42, now, now.Add(time.Hour))
	require.NoError(t, err)

	claims, err := signer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", claims.Email)
	assert.Equal(t, "verifid", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestHMACSigner_TokensAreUnique(t *testing.T) {
	now := time.Now()
	signer, err := token.NewHMACSigner(testSecret)
	require.NoError(t, err)

	first, err := signer.Sign("a@example.com", 1, now, now.Add(time.Hour))
	require.NoError(t, err)
	second, err := signer.Sign("a@example.com", 1, now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHMACSigner_Parse(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(raw string) string
		parseAt time.Time
		secret  []byte
		want    error
	}{
		{
			name:    "expired token",
			mutate:  func(raw string) string { return raw },
			parseAt: issued.Add(2 * time.Hour),
			secret:  testSecret,
			want:    token.ErrExpired,
		},
		{
			name:    "tampered token",
			mutate:  func(raw string) string { return raw[:len(raw)-2] + "xx" },
			parseAt: issued,
			secret:  testSecret,
			want:    token.ErrInvalid,
		},
		{
			name:    "different secret",
			mutate:  func(raw string) string { return raw },
			parseAt: issued,
			secret:  []byte(strings.Repeat("z", token.MinSecretLength)),
			want:    token.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := token.NewHMACSigner(testSecret)
			require.NoError(t, err)
			raw, err := signer.Sign("a@example.com", 1, issued, issued.Add(time.Hour))
			require.NoError(t, err)

			parser, err := token.NewHMACSigner(tt.secret, token.WithClock(func() time.Time { return tt.parseAt }))
			require.NoError(t, err)

			_, err = parser.Parse(tt.mutate(raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
