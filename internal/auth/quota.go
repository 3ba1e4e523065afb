// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package auth

import (
	"time"

	"github.com/samber/oops"
)

// ResetPolicy decides when the email resend counter starts over.
type ResetPolicy string

// Reset policies.
const (
	// ResetManual keeps the counter until ResetResendCounts runs.
	ResetManual ResetPolicy = "manual"
	// ResetDaily starts a new window at each calendar day boundary.
	ResetDaily ResetPolicy = "daily"
	// ResetSliding starts a new window once Window has elapsed since it began.
	ResetSliding ResetPolicy = "sliding"
)

// Resend quota defaults.
const (
	DefaultMaxResends   = 3
	DefaultResendWindow = 24 * time.Hour
)

// ResendQuota bounds how many verification emails a profile may receive.
// The initial send counts as the first one.
type ResendQuota struct {
	Max      int
	Policy   ResetPolicy
	Window   time.Duration  // sliding policy only
	Location *time.Location // daily policy only; nil means UTC
}

// DefaultResendQuota returns a quota of three sends per calendar day (UTC).
func DefaultResendQuota() ResendQuota {
	return ResendQuota{
		Max:    DefaultMaxResends,
		Policy: ResetDaily,
		Window: DefaultResendWindow,
	}
}

// Validate rejects quotas that can never allow a resend or have no reset rule.
func (q ResendQuota) Validate() error {
	if q.Max < 1 {
		return oops.Code("QUOTA_INVALID").With("max", q.Max).Errorf("max resends must be at least 1")
	}
	switch q.Policy {
	case ResetManual, ResetDaily:
	case ResetSliding:
		if q.Window <= 0 {
			return oops.Code("QUOTA_INVALID").Errorf("sliding reset policy requires a positive window")
		}
	default:
		return oops.Code("QUOTA_INVALID").
			With("policy", string(q.Policy)).
			Errorf("unknown reset policy %q", q.Policy)
	}
	return nil
}

// ResendDecision is the outcome of a quota check.
type ResendDecision struct {
	// Allowed is true when another send may happen now.
	Allowed bool

	// NotStarted is true when no initial send was ever recorded.
	NotStarted bool

	// Count is the counter value after the reset rule is applied, before this send.
	Count int

	// WindowStartedAt is the start of the window the next send belongs to.
	WindowStartedAt time.Time

	// RetryAt is when the window resets. Zero for the manual policy.
	RetryAt time.Time
}

// Check evaluates the quota for a profile whose counter is count and whose window
// started at windowStart.
func (q ResendQuota) Check(count int, windowStart, now time.Time) ResendDecision {
	if count <= 0 {
		return ResendDecision{NotStarted: true, WindowStartedAt: windowStart}
	}

	decision := ResendDecision{Count: count, WindowStartedAt: windowStart}
	if q.windowElapsed(windowStart, now) {
		decision.Count = 1
		decision.WindowStartedAt = q.windowStart(now)
	}

	decision.Allowed = decision.Count < q.Max
	if !decision.Allowed {
		decision.RetryAt = q.windowEnd(decision.WindowStartedAt)
	}
	return decision
}

func (q ResendQuota) windowElapsed(start, now time.Time) bool {
	switch q.Policy {
	case ResetDaily:
		return start.Before(q.windowStart(now))
	case ResetSliding:
		return !now.Before(start.Add(q.Window))
	default:
		return false
	}
}

// windowStart returns the start of the window that contains now.
func (q ResendQuota) windowStart(now time.Time) time.Time {
	if q.Policy != ResetDaily {
		return now
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func (q ResendQuota) windowEnd(start time.Time) time.Time {
	switch q.Policy {
	case ResetDaily:
		return q.windowStart(start).AddDate(0, 0, 1)
	case ResetSliding:
		return start.Add(q.Window)
	default:
		return time.Time{}
	}
}
