// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const (
	rateLimiterSweepInterval = 5 * time.Minute
	redisLimiterTimeout      = 250 * time.Millisecond
	redisKeyPrefix           = "verifid:ratelimit:"
)

// RateDecision is the outcome of one rate limit check.
type RateDecision struct {
	Allowed   bool
	Count     int
	WindowEnd time.Time
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) RateDecision
	Close() error
}

type rateState struct {
	count     int
	windowEnd time.Time
}

// MemoryRateLimiter keeps windows in process memory. A background goroutine
// drops expired windows until Close is called.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]rateState
	now     func() time.Time
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter creates a MemoryRateLimiter and starts its sweeper.
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return newMemoryRateLimiter(time.Now, rateLimiterSweepInterval)
}

func newMemoryRateLimiter(now func() time.Time, sweepEvery time.Duration) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		entries: make(map[string]rateState),
		now:     now,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop(sweepEvery)
	return rl
}

// Allow counts one request for key.
func (rl *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) RateDecision {
	if limit <= 0 {
		return RateDecision{Allowed: true}
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.entries[key]
	if !ok || !now.Before(state.windowEnd) {
		state = rateState{count: 1, windowEnd: now.Add(window)}
		rl.entries[key] = state
		return RateDecision{Allowed: true, Count: 1, WindowEnd: state.windowEnd}
	}
	if state.count >= limit {
		return RateDecision{Allowed: false, Count: state.count, WindowEnd: state.windowEnd}
	}
	state.count++
	rl.entries[key] = state
	return RateDecision{Allowed: true, Count: state.count, WindowEnd: state.windowEnd}
}

func (rl *MemoryRateLimiter) sweepLoop(every time.Duration) {
	defer close(rl.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, state := range rl.entries {
		if !now.Before(state.windowEnd) {
			delete(rl.entries, key)
		}
	}
}

func (rl *MemoryRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Close stops the sweeper and waits for it to exit.
func (rl *MemoryRateLimiter) Close() error {
	rl.once.Do(func() { close(rl.stopCh) })
	<-rl.done
	return nil
}

// RedisRateLimiter shares windows between instances through Redis.
// Redis failures let the request through and are logged.
type RedisRateLimiter struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisRateLimiter connects to Redis and checks it answers.
func NewRedisRateLimiter(ctx context.Context, opts *redis.Options, logger *slog.Logger) (*RedisRateLimiter, error) {
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("RATELIMIT_UNAVAILABLE").With("addr", opts.Addr).Wrap(err)
	}
	return newRedisRateLimiter(client, logger), nil
}

func newRedisRateLimiter(client redis.UniversalClient, logger *slog.Logger) *RedisRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRateLimiter{client: client, logger: logger}
}

// Allow counts one request for key.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) RateDecision {
	if limit <= 0 {
		return RateDecision{Allowed: true}
	}
	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	redisKey := redisKeyPrefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, window)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		rl.logger.ErrorContext(ctx, "redis rate limiter error", "error", err)
		return RateDecision{Allowed: true}
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	count := int(incr.Val())
	return RateDecision{
		Allowed:   count <= limit,
		Count:     count,
		WindowEnd: time.Now().Add(remaining),
	}
}

// Close releases the Redis connection pool.
func (rl *RedisRateLimiter) Close() error {
	if err := rl.client.Close(); err != nil {
		return oops.Code("RATELIMIT_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// clientKey identifies the caller by remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

func setRateHeaders(w http.ResponseWriter, limit int, d RateDecision) {
	remaining := max(limit-d.Count, 0)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !d.WindowEnd.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.WindowEnd.Unix(), 10))
	}
}

var (
	_ RateLimiter = (*MemoryRateLimiter)(nil)
	_ RateLimiter = (*RedisRateLimiter)(nil)
)
