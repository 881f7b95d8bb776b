/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-ratelimit/internal/keystore"
	"github.com/acronis/go-ratelimit/log"
)

// TokenBucketLimiter implements the classic token bucket algorithm with lazy,
// on-access refill. Every key owns a bucket holding up to capacity tokens;
// tokens replenish continuously at refillRate tokens per second, and each
// admitted request consumes one token. A bucket starts full, so a new key may
// burst up to capacity requests at once.
type TokenBucketLimiter struct {
	capacity   int
	refillRate float64

	buckets *keystore.Store[*tokenBucket]

	metricsCollector MetricsCollector
	dryRun           bool
	logger           log.FieldLogger

	now func() time.Time
}

var _ Limiter = (*TokenBucketLimiter)(nil)

// tokenBucket is the per-key state. The token level and the refill timestamp
// are read and written only under the bucket's own mutex, so checks for
// different keys never contend with each other.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiterOpts represents options for TokenBucketLimiter.
// For options that are not presented, the default values will be used.
type TokenBucketLimiterOpts struct {
	// MaxKeys bounds the number of tracked keys; when exceeded, the least
	// recently used key is evicted. An evicted key starts over with a full
	// bucket on its next request. Zero means the key registry is unbounded.
	MaxKeys int

	// IdleTTL drops the state of keys that received no requests for the
	// given duration. Zero means keys are kept forever.
	IdleTTL time.Duration

	// DryRun computes and reports rate limiting decisions without enforcing
	// them: a request that would be rejected is logged and counted, but
	// admitted anyway.
	DryRun bool

	// Logger is used to log would-be rejections in dry-run mode. May be nil.
	Logger log.FieldLogger

	// MetricsCollector gathers decisions and key set statistics. May be nil.
	MetricsCollector MetricsCollector
}

// NewTokenBucketLimiter creates a new TokenBucketLimiter with the specified
// per-key burst capacity and refill rate in tokens per second.
func NewTokenBucketLimiter(capacity int, refillRate float64) (*TokenBucketLimiter, error) {
	return NewTokenBucketLimiterWithOpts(capacity, refillRate, TokenBucketLimiterOpts{})
}

// NewTokenBucketLimiterWithOpts creates a new TokenBucketLimiter with the specified
// per-key burst capacity, refill rate in tokens per second, and options.
func NewTokenBucketLimiterWithOpts(
	capacity int, refillRate float64, opts TokenBucketLimiterOpts,
) (*TokenBucketLimiter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfiguration, capacity)
	}
	if refillRate <= 0 {
		return nil, fmt.Errorf("%w: refill rate must be positive, got %v", ErrInvalidConfiguration, refillRate)
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	buckets, err := keystore.New[*tokenBucket](keystore.Opts{
		MaxKeys:          opts.MaxKeys,
		IdleTTL:          opts.IdleTTL,
		MetricsCollector: opts.MetricsCollector,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfiguration, err)
	}
	return &TokenBucketLimiter{
		capacity:         capacity,
		refillRate:       refillRate,
		buckets:          buckets,
		metricsCollector: opts.MetricsCollector,
		dryRun:           opts.DryRun,
		logger:           opts.Logger,
		now:              time.Now,
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
// The bucket for a previously unseen key is created full. The elapsed time
// since the bucket's last check replenishes elapsed*refillRate tokens, capped
// at capacity, and the refill window restarts at the check's timestamp on
// every check that observes elapsed time, admitted or not. The check consumes
// one token when at least one is available; a denied request costs nothing.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	now := l.now()
	b := l.buckets.GetOrCreate(key, func() *tokenBucket {
		return &tokenBucket{tokens: float64(l.capacity), lastRefill: now}
	})

	b.mu.Lock()
	// The refill window only moves forward. Lock acquisition order may not
	// follow clock-sample order, so a caller holding a timestamp older than
	// lastRefill neither refills nor rewinds the window: rewinding it would
	// let the next check credit the same interval twice.
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens += elapsed.Seconds() * l.refillRate
		if b.tokens > float64(l.capacity) {
			b.tokens = float64(l.capacity)
		}
		b.lastRefill = now
	}
	if b.tokens >= 1 {
		b.tokens--
		b.mu.Unlock()
		l.metricsCollector.IncAllows()
		return true, 0, nil
	}
	retryAfter = time.Duration((1 - b.tokens) / l.refillRate * float64(time.Second))
	b.mu.Unlock()

	l.metricsCollector.IncRejects(l.dryRun)
	if l.dryRun {
		l.logger.Warn("rate limit exceeded, but the request is allowed in dry-run mode",
			log.String("key", key), log.Duration("retry_after", retryAfter))
		return true, 0, nil
	}
	return false, retryAfter, nil
}

// KeysAmount returns the number of currently tracked keys.
func (l *TokenBucketLimiter) KeysAmount() int {
	return l.buckets.Len()
}

// RunPeriodicCleanup runs a cycle of periodic removal of idle keys' buckets.
// It has an effect only when IdleTTL is configured.
// It's supposed to be run in a separate goroutine.
func (l *TokenBucketLimiter) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	l.buckets.RunPeriodicCleanup(ctx, cleanupInterval)
}
