// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/auth/memory"
	"github.com/verifid/verifid/internal/observability"
	"github.com/verifid/verifid/internal/token"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inbox records the last code sent to each address and can be told to fail.
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (n *inbox) SendVerificationCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes[email] = code
	return nil
}

func (n *inbox) code(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

func (n *inbox) fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

type apiFixture struct {
	store   *memory.Store
	inbox   *inbox
	metrics *observability.Metrics
	router  *Router
}

func newAPIFixture(t *testing.T, limiter RateLimiter, limit RateLimit) *apiFixture {
	t.Helper()
	f := &apiFixture{
		store:   memory.NewStore(),
		inbox:   &inbox{codes: make(map[string]string)},
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
	opts := []auth.Option{auth.WithLogger(quietLogger())}

	codes, err := auth.NewCodeIssuer(f.store, f.inbox, auth.DefaultCodeConfig(), opts...)
	require.NoError(t, err)
	signer, err := token.NewHMACSigner([]byte(strings.Repeat("w", token.MinSecretLength)))
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(f.store, signer, 0, opts...)
	require.NoError(t, err)
	hasher, err := auth.NewBcryptHasher(4)
	require.NoError(t, err)
	service, err := auth.NewAuthService(f.store, hasher, codes, sessions, opts...)
	require.NoError(t, err)

	f.router, err = NewRouter(Deps{
		Auth:      service,
		Codes:     codes,
		Limiter:   limiter,
		RateLimit: limit,
		Metrics:   f.metrics,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	return f
}

// post sends body to path and returns the recorder.
func (f *apiFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, email string) int64 {
	t.Helper()
	rec := f.post(t, "/authentication/register", RegisterRequest{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	profile, err := f.store.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, profile)
	return profile.UserID
}

func (f *apiFixture) verify(t *testing.T, email string, userID int64) {
	t.Helper()
	rec := f.post(t, "/email/verification-email", VerifyRequest{UserID: userID, Code: f.inbox.code(email)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}
