// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/auth/memory"
	"github.com/verifid/verifid/internal/token"
)

var testSecret = []byte(strings.Repeat("k", token.MinSecretLength))

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier keeps the last code sent to each address.
type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	sends int
	err   error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{codes: make(map[string]string)}
}

func (n *recordingNotifier) SendVerificationCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes[email] = code
	n.sends++
	return nil
}

func (n *recordingNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stack wires every service against an in-memory store.
type stack struct {
	store    *memory.Store
	notifier *recordingNotifier
	clock    *fakeClock
	codes    *auth.CodeIssuer
	sessions *auth.SessionManager
	service  *auth.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	st := &stack{
		store:    memory.NewStore(),
		notifier: newRecordingNotifier(),
		clock:    newFakeClock(),
	}
	opts := []auth.Option{auth.WithClock(st.clock.Now), auth.WithLogger(discardLogger())}

	var err error
	st.codes, err = auth.NewCodeIssuer(st.store, st.notifier, auth.DefaultCodeConfig(), opts...)
	require.NoError(t, err)

	signer, err := token.NewHMACSigner(testSecret, token.WithClock(st.clock.Now))
	require.NoError(t, err)
	st.sessions, err = auth.NewSessionManager(st.store, signer, 0, opts...)
	require.NoError(t, err)

	hasher, err := auth.NewBcryptHasher(4)
	require.NoError(t, err)
	st.service, err = auth.NewAuthService(st.store, hasher, st.codes, st.sessions, opts...)
	require.NoError(t, err)
	return st
}

// register creates an account and returns its user ID.
func (st *stack) register(t *testing.T, email string) int64 {
	t.Helper()
	in := validRegisterInput()
	in.Email = email
	in.PhoneNumber = ""
	res, err := st.service.Register(context.Background(), in)
	require.NoError(t, err)
	return res.UserID
}
