/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// SlidingWindowLimiterTestSuite contains tests for SlidingWindowLimiter
type SlidingWindowLimiterTestSuite struct {
	suite.Suite
}

func TestSlidingWindowLimiter(t *testing.T) {
	suite.Run(t, new(SlidingWindowLimiterTestSuite))
}

func (ts *SlidingWindowLimiterTestSuite) TestInvalidConfiguration() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 0, Duration: time.Second})
	ts.Nil(limiter)
	ts.ErrorIs(err, ErrInvalidConfiguration)

	limiter, err = NewSlidingWindowLimiter(Rate{Count: 2, Duration: 0})
	ts.Nil(limiter)
	ts.ErrorIs(err, ErrInvalidConfiguration)
}

func (ts *SlidingWindowLimiterTestSuite) TestAllowSequential() {
	limiter, err := NewSlidingWindowLimiterWithOpts(
		Rate{Count: 2, Duration: time.Second}, SlidingWindowLimiterOpts{MaxKeys: 100})
	ts.Require().NoError(err)

	ctx := context.Background()
	key := "test-key"

	// First request should be allowed
	allow, retryAfter, err := limiter.Allow(ctx, key)
	ts.NoError(err)
	ts.True(allow)
	ts.Equal(time.Duration(0), retryAfter)

	// Second request should be allowed
	allow, retryAfter, err = limiter.Allow(ctx, key)
	ts.NoError(err)
	ts.True(allow)
	ts.Equal(time.Duration(0), retryAfter)

	// Third request should be rate limited
	allow, retryAfter, err = limiter.Allow(ctx, key)
	ts.NoError(err)
	ts.False(allow)
	ts.Greater(retryAfter, time.Duration(0))
	ts.LessOrEqual(retryAfter, time.Second)
}

func (ts *SlidingWindowLimiterTestSuite) TestKeyIsolation() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 1, Duration: time.Minute})
	ts.Require().NoError(err)

	ctx := context.Background()

	allow, _, err := limiter.Allow(ctx, "userA")
	ts.NoError(err)
	ts.True(allow)

	allow, _, err = limiter.Allow(ctx, "userA")
	ts.NoError(err)
	ts.False(allow)

	// A busy neighbor must not affect other keys.
	allow, _, err = limiter.Allow(ctx, "userB")
	ts.NoError(err)
	ts.True(allow)

	ts.Equal(2, limiter.KeysAmount())
}

func (ts *SlidingWindowLimiterTestSuite) TestDryRun() {
	mc := &testMetricsCollector{}
	limiter, err := NewSlidingWindowLimiterWithOpts(
		Rate{Count: 1, Duration: time.Minute}, SlidingWindowLimiterOpts{DryRun: true, MetricsCollector: mc})
	ts.Require().NoError(err)

	ctx := context.Background()
	key := "test-key"

	for i := 0; i < 3; i++ {
		allow, _, err := limiter.Allow(ctx, key)
		ts.NoError(err)
		ts.True(allow)
	}
	ts.Equal(int32(1), mc.allows.Load())
	ts.Equal(int32(2), mc.dryRunRejects.Load())
}
