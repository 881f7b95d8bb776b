/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/acronis/go-ratelimit/internal/keystore"
	"github.com/acronis/go-ratelimit/log"
)

// SlidingWindowLimiter implements the sliding window rate limiting algorithm.
// Every key counts its requests in the current and the previous fixed window;
// the weighted sum of the two approximates a window sliding over time.
type SlidingWindowLimiter struct {
	maxRate Rate
	windows *keystore.Store[*slidingwindow.Limiter]

	metricsCollector MetricsCollector
	dryRun           bool
	logger           log.FieldLogger

	now func() time.Time
}

var _ Limiter = (*SlidingWindowLimiter)(nil)

// SlidingWindowLimiterOpts represents options for SlidingWindowLimiter.
// For options that are not presented, the default values will be used.
type SlidingWindowLimiterOpts struct {
	// MaxKeys bounds the number of tracked keys; when exceeded, the least
	// recently used key is evicted and starts counting from zero on its
	// next request. Zero means the key registry is unbounded.
	MaxKeys int

	// IdleTTL drops the state of keys that received no requests for the
	// given duration. Zero means keys are kept forever.
	IdleTTL time.Duration

	// DryRun computes and reports rate limiting decisions without enforcing them.
	DryRun bool

	// Logger is used to log would-be rejections in dry-run mode. May be nil.
	Logger log.FieldLogger

	// MetricsCollector gathers decisions and key set statistics. May be nil.
	MetricsCollector MetricsCollector
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(maxRate Rate) (*SlidingWindowLimiter, error) {
	return NewSlidingWindowLimiterWithOpts(maxRate, SlidingWindowLimiterOpts{})
}

// NewSlidingWindowLimiterWithOpts creates a new sliding window rate limiter with the provided options.
func NewSlidingWindowLimiterWithOpts(maxRate Rate, opts SlidingWindowLimiterOpts) (*SlidingWindowLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("%w: max rate must be positive, got %q", ErrInvalidConfiguration, maxRate)
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	windows, err := keystore.New[*slidingwindow.Limiter](keystore.Opts{
		MaxKeys:          opts.MaxKeys,
		IdleTTL:          opts.IdleTTL,
		MetricsCollector: opts.MetricsCollector,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfiguration, err)
	}
	return &SlidingWindowLimiter{
		maxRate:          maxRate,
		windows:          windows,
		metricsCollector: opts.MetricsCollector,
		dryRun:           opts.DryRun,
		logger:           opts.Logger,
		now:              time.Now,
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	window := l.windows.GetOrCreate(key, func() *slidingwindow.Limiter {
		lim, _ := slidingwindow.NewLimiter(
			l.maxRate.Duration, int64(l.maxRate.Count), func() (slidingwindow.Window, slidingwindow.StopFunc) {
				return slidingwindow.NewLocalWindow()
			})
		return lim
	})
	if window.Allow() {
		l.metricsCollector.IncAllows()
		return true, 0, nil
	}
	now := l.now()
	retryAfter = now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now)
	l.metricsCollector.IncRejects(l.dryRun)
	if l.dryRun {
		l.logger.Warn("rate limit exceeded, but the request is allowed in dry-run mode",
			log.String("key", key), log.Duration("retry_after", retryAfter))
		return true, 0, nil
	}
	return false, retryAfter, nil
}

// KeysAmount returns the number of currently tracked keys.
func (l *SlidingWindowLimiter) KeysAmount() int {
	return l.windows.Len()
}

// RunPeriodicCleanup runs a cycle of periodic removal of idle keys' windows.
// It has an effect only when IdleTTL is configured.
// It's supposed to be run in a separate goroutine.
func (l *SlidingWindowLimiter) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	l.windows.RunPeriodicCleanup(ctx, cleanupInterval)
}
