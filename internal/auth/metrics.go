// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SendReason labels why a verification code was sent.
type SendReason string

// Send reasons.
const (
	SendReasonInitial SendReason = "initial"
	SendReasonResend  SendReason = "resend"
)

// Delivery status labels for CodesSent.
const (
	SendStatusDelivered = "delivered"
	SendStatusRejected  = "rejected"
	SendStatusFailed    = "failed"
)

// Operation labels for Operations.
const (
	OperationLogin    = "login"
	OperationRegister = "register"
)

// Operations counts login and registration attempts by outcome kind.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "verifid_auth_operations_total",
		Help: "Total number of authentication operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// OperationDuration observes how long login and registration take.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "verifid_auth_operation_duration_seconds",
		Help:    "Authentication operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// CodesSent counts verification code deliveries.
var CodesSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "verifid_verification_codes_sent_total",
		Help: "Total number of verification code deliveries by reason and status",
	},
	[]string{"reason", "status"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(CodesSent)
}

// recordOperation counts an operation under the kind of its error, or "success".
func recordOperation(operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	Operations.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func recordCodeSent(reason SendReason, status string) {
	CodesSent.WithLabelValues(string(reason), status).Inc()
}
