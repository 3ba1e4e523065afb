// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package web exposes the authentication and email verification API over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/observability"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

// Response messages.
const (
	MessageCodeSent    = "Verification email sent"
	MessageCodeResent  = "Verification email resent"
	MessageEmailVerify = "Email verified successfully"
)

// Authenticator is the login and registration surface the API needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Register(ctx context.Context, in auth.RegisterInput) (*auth.RegisterResult, error)
}

// Verifier is the verification code surface the API needs.
type Verifier interface {
	IssueInitial(ctx context.Context, email string) error
	Resend(ctx context.Context, email string) error
	Verify(ctx context.Context, userID int64, code string) error
}

// RateLimit bounds requests per client and route. A zero Requests disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Deps are the dependencies of the API router.
type Deps struct {
	Auth      Authenticator
	Codes     Verifier
	Limiter   RateLimiter // nil disables rate limiting
	RateLimit RateLimit
	Metrics   *observability.Metrics // nil disables request metrics
	Logger    *slog.Logger
}

// Router wires HTTP endpoints to the auth services.
type Router struct {
	mux     *http.ServeMux
	auth    Authenticator
	codes   Verifier
	limiter RateLimiter
	limit   RateLimit
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRouter assembles the API routes.
func NewRouter(deps Deps) (*Router, error) {
	if deps.Auth == nil {
		return nil, oops.Code("WEB_INVALID_OPTION").Errorf("authenticator is required")
	}
	if deps.Codes == nil {
		return nil, oops.Code("WEB_INVALID_OPTION").Errorf("verifier is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:     http.NewServeMux(),
		auth:    deps.Auth,
		codes:   deps.Codes,
		limiter: deps.Limiter,
		limit:   deps.RateLimit,
		metrics: deps.Metrics,
		logger:  logger,
	}
	r.handle("POST /authentication/login", r.handleLogin)
	r.handle("POST /authentication/register", r.handleRegister)
	r.handle("POST /email/send-email", r.handleSendEmail)
	r.handle("POST /email/verification-email", r.handleVerifyEmail)
	r.handle("POST /email/resend-email", r.handleResendEmail)
	r.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "route not found")
	})
	return r, nil
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	route := pattern[len("POST "):]
	r.mux.Handle(pattern, r.instrument(route, r.rateLimited(route, h)))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body LoginRequest
	if !r.decode(w, req, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	result, err := r.auth.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{AccessToken: result.AccessToken})
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body RegisterRequest
	if !r.decode(w, req, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	result, err := r.auth.Register(req.Context(), body.Input())
	if err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	writeMessage(w, http.StatusCreated, result.Message)
}

func (r *Router) handleSendEmail(w http.ResponseWriter, req *http.Request) {
	var body EmailRequest
	if !r.decode(w, req, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	if err := r.codes.IssueInitial(req.Context(), auth.NormalizeEmail(body.Email)); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, MessageCodeSent)
}

func (r *Router) handleVerifyEmail(w http.ResponseWriter, req *http.Request) {
	var body VerifyRequest
	if !r.decode(w, req, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	if err := r.codes.Verify(req.Context(), body.UserID, body.Code); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, MessageEmailVerify)
}

func (r *Router) handleResendEmail(w http.ResponseWriter, req *http.Request) {
	var body EmailRequest
	if !r.decode(w, req, &body) {
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	if err := r.codes.Resend(req.Context(), auth.NormalizeEmail(body.Email)); err != nil {
		writeError(w, req, r.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, MessageCodeResent)
}

// decode reads a JSON body into dst. Unknown fields are rejected. On failure it
// writes a 400 response and returns false.
func (r *Router) decode(w http.ResponseWriter, req *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "request body must be a JSON object"
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var sizeErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case errors.As(err, &typeErr):
			msg = "field " + typeErr.Field + " has the wrong type"
		case errors.As(err, &sizeErr):
			msg = "request body is too large"
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			msg = "request body is not valid JSON"
		}
		writeStatus(w, http.StatusBadRequest, msg)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeStatus(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return false
	}
	return true
}

// rateLimited rejects clients that exceeded the per-route limit with 429.
func (r *Router) rateLimited(route string, next http.HandlerFunc) http.HandlerFunc {
	if r.limiter == nil || r.limit.Requests <= 0 {
		return next
	}
	return func(w http.ResponseWriter, req *http.Request) {
		decision := r.limiter.Allow(req.Context(), route+"|"+clientKey(req), r.limit.Requests, r.limit.Window)
		setRateHeaders(w, r.limit.Requests, decision)
		if !decision.Allowed {
			span := trace.SpanFromContext(req.Context())
			span.SetAttributes(attribute.Bool("http.rate_limited", true))
			span.SetAttributes(attribute.Int("http.rate_limit_count", decision.Count))
			if r.metrics != nil {
				r.metrics.RateLimited.WithLabelValues(route).Inc()
			}
			if !decision.WindowEnd.IsZero() {
				retry := max(int(time.Until(decision.WindowEnd).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
			writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// instrument records request metrics and logs each request at debug level.
func (r *Router) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, req)
		elapsed := time.Since(started)

		if r.metrics != nil {
			r.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			r.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		r.logger.DebugContext(req.Context(), "request",
			"route", route,
			"status", rec.status,
			"duration", elapsed,
		)
	}
}
