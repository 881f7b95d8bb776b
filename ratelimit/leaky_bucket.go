/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	"github.com/acronis/go-ratelimit/log"
)

// LeakyBucketLimiter implements GCRA (Generic Cell Rate Algorithm). It's a leaky bucket variant algorithm.
// More details and good explanation of this alg is provided here: https://brandur.org/rate-limiting#gcra.
// Unlike TokenBucketLimiter it smooths the admissions over the rate's period
// instead of allowing the whole burst at an arbitrary instant.
type LeakyBucketLimiter struct {
	limiter *throttled.GCRARateLimiterCtx

	metricsCollector MetricsCollector
	dryRun           bool
	logger           log.FieldLogger
}

var _ Limiter = (*LeakyBucketLimiter)(nil)

// LeakyBucketLimiterOpts represents options for LeakyBucketLimiter.
// For options that are not presented, the default values will be used.
type LeakyBucketLimiterOpts struct {
	// MaxKeys bounds the number of tracked keys. Zero means the key registry is unbounded.
	MaxKeys int

	// DryRun computes and reports rate limiting decisions without enforcing them.
	DryRun bool

	// Logger is used to log would-be rejections in dry-run mode. May be nil.
	Logger log.FieldLogger

	// MetricsCollector gathers decisions statistics. May be nil.
	MetricsCollector MetricsCollector
}

// NewLeakyBucketLimiter creates a new leaky bucket rate limiter.
func NewLeakyBucketLimiter(maxRate Rate, maxBurst int) (*LeakyBucketLimiter, error) {
	return NewLeakyBucketLimiterWithOpts(maxRate, maxBurst, LeakyBucketLimiterOpts{})
}

// NewLeakyBucketLimiterWithOpts creates a new leaky bucket rate limiter with the provided options.
func NewLeakyBucketLimiterWithOpts(maxRate Rate, maxBurst int, opts LeakyBucketLimiterOpts) (*LeakyBucketLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("%w: max rate must be positive, got %q", ErrInvalidConfiguration, maxRate)
	}
	if maxBurst < 0 {
		return nil, fmt.Errorf("%w: max burst must not be negative, got %d", ErrInvalidConfiguration, maxBurst)
	}
	gcraStore, err := memstore.NewCtx(opts.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	gcraLimiter, err := throttled.NewGCRARateLimiterCtx(gcraStore, throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRate.Count, maxRate.Duration),
		MaxBurst: maxBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &LeakyBucketLimiter{
		limiter:          gcraLimiter,
		metricsCollector: opts.MetricsCollector,
		dryRun:           opts.DryRun,
		logger:           opts.Logger,
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *LeakyBucketLimiter) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	limited, res, err := l.limiter.RateLimitCtx(ctx, key, 1)
	if err != nil {
		return false, 0, err
	}
	if !limited {
		l.metricsCollector.IncAllows()
		return true, 0, nil
	}
	l.metricsCollector.IncRejects(l.dryRun)
	if l.dryRun {
		l.logger.Warn("rate limit exceeded, but the request is allowed in dry-run mode",
			log.String("key", key), log.Duration("retry_after", res.RetryAfter))
		return true, 0, nil
	}
	return false, res.RetryAfter, nil
}
