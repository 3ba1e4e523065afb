// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/auth/mocks"
	"github.com/verifid/verifid/internal/token"
	"github.com/verifid/verifid/pkg/errutil"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("valid session stores only the token hash", func(t *testing.T) {
		s, err := auth.NewSession(7, "raw-token", now, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(7), s.UserID)
		assert.Equal(t, auth.HashSessionToken("raw-token"), s.TokenHash)
		assert.Len(t, s.TokenHash, 64)
		assert.False(t, s.IsExpiredAt(now.Add(time.Hour)))
		assert.True(t, s.IsExpiredAt(now.Add(time.Hour+time.Nanosecond)))
	})

	tests := []struct {
		name     string
		userID   int64
		token    string
		expires  time.Time
		wantCode string
	}{
		{"zero user", 0, "raw", now.Add(time.Hour), "SESSION_INVALID_USER"},
		{"empty token", 7, "", now.Add(time.Hour), "SESSION_TOKEN_EMPTY"},
		{"expiry not after creation", 7, "raw", now, "SESSION_INVALID_EXPIRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewSession(tt.userID, tt.token, now, tt.expires)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestHashSessionToken(t *testing.T) {
	assert.Equal(t, auth.HashSessionToken("token1"), auth.HashSessionToken("token1"))
	assert.NotEqual(t, auth.HashSessionToken("token1"), auth.HashSessionToken("token2"))
}

func TestSessionManager_IssueToken(t *testing.T) {
	clock := newFakeClock()
	store := mocks.NewMockCredentialStore(t)
	signer := mocks.NewMockTokenSigner(t)
	mgr, err := auth.NewSessionManager(store, signer, 0, auth.WithClock(clock.Now))
	require.NoError(t, err)

	issued := clock.Now()
	signer.On("Sign", "juan@example.com", int64(7), issued, issued.Add(auth.DefaultSessionTTL)).Return("signed", nil)

	raw, expiresAt, err := mgr.IssueToken("juan@example.com", 7)
	require.NoError(t, err)
	assert.Equal(t, "signed", raw)
	assert.Equal(t, issued.Add(time.Hour), expiresAt)
}

func TestSessionManager_IssueToken_SignFailure(t *testing.T) {
	clock := newFakeClock()
	signer := mocks.NewMockTokenSigner(t)
	mgr, err := auth.NewSessionManager(mocks.NewMockCredentialStore(t), signer, 0, auth.WithClock(clock.Now))
	require.NoError(t, err)

	signErr := oops.Code("TOKEN_SIGN_FAILED").Errorf("hmac unavailable")
	signer.On("Sign", mock.Anything, int64(7), mock.Anything, mock.Anything).Return("", signErr)

	_, _, err = mgr.IssueToken("juan@example.com", 7)
	errutil.AssertErrorCode(t, err, "SESSION_ISSUE_FAILED")
	assert.Contains(t, err.Error(), "hmac unavailable")
}

func TestSessionManager_RecordSession(t *testing.T) {
	ctx := context.Background()

	t.Run("marks user online before appending", func(t *testing.T) {
		store := mocks.NewMockCredentialStore(t)
		mgr, err := auth.NewSessionManager(store, mocks.NewMockTokenSigner(t), time.Hour)
		require.NoError(t, err)

		online := store.On("SetOnline", ctx, int64(7), true).Return(nil)
		store.On("CreateSession", ctx, mock.MatchedBy(func(s *auth.Session) bool {
			return s.UserID == 7 && s.TokenHash == auth.HashSessionToken("raw")
		})).Return(nil).NotBefore(online)

		session, err := mgr.RecordSession(ctx, 7, "raw")
		require.NoError(t, err)
		assert.Equal(t, int64(7), session.UserID)
	})

	t.Run("token collision is a conflict", func(t *testing.T) {
		store := mocks.NewMockCredentialStore(t)
		mgr, err := auth.NewSessionManager(store, mocks.NewMockTokenSigner(t), time.Hour)
		require.NoError(t, err)

		store.On("SetOnline", ctx, int64(7), true).Return(nil)
		store.On("CreateSession", ctx, mock.Anything).Return(auth.ErrTokenCollision)

		_, err = mgr.RecordSession(ctx, 7, "raw")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_TOKEN_COLLISION")
		assert.Equal(t, auth.KindConflict, auth.KindOf(err))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		store := mocks.NewMockCredentialStore(t)
		mgr, err := auth.NewSessionManager(store, mocks.NewMockTokenSigner(t), time.Hour, auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		store.On("SetOnline", ctx, int64(7), true).Return(errors.New("connection refused"))

		_, err = mgr.RecordSession(ctx, 7, "raw")
		errutil.AssertErrorCode(t, err, "SESSION_RECORD_FAILED")
		assert.Equal(t, auth.KindInternal, auth.KindOf(err))
	})
}

func TestSessionManager_ParseToken(t *testing.T) {
	clock := newFakeClock()
	signer, err := token.NewHMACSigner(testSecret, token.WithClock(clock.Now))
	require.NoError(t, err)
	mgr, err := auth.NewSessionManager(mocks.NewMockCredentialStore(t), signer, time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)

	raw, _, err := mgr.IssueToken("juan@example.com", 7)
	require.NoError(t, err)

	claims, err := mgr.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", claims.Email)
	assert.Equal(t, "7", claims.Subject)

	_, err = mgr.ParseToken("")
	errutil.AssertErrorCode(t, err, "SESSION_TOKEN_INVALID")

	_, err = mgr.ParseToken("not.a.token")
	errutil.AssertErrorCode(t, err, "SESSION_TOKEN_INVALID")
	assert.Equal(t, auth.KindUnauthorized, auth.KindOf(err))

	clock.Advance(2 * time.Hour)
	_, err = mgr.ParseToken(raw)
	errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
}
