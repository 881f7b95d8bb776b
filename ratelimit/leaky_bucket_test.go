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

// LeakyBucketLimiterTestSuite contains tests for LeakyBucketLimiter
type LeakyBucketLimiterTestSuite struct {
	suite.Suite
}

func TestLeakyBucketLimiter(t *testing.T) {
	suite.Run(t, new(LeakyBucketLimiterTestSuite))
}

func (ts *LeakyBucketLimiterTestSuite) TestInvalidConfiguration() {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 0, Duration: time.Second}, 1)
	ts.Nil(limiter)
	ts.ErrorIs(err, ErrInvalidConfiguration)

	limiter, err = NewLeakyBucketLimiter(Rate{Count: 2, Duration: 0}, 1)
	ts.Nil(limiter)
	ts.ErrorIs(err, ErrInvalidConfiguration)

	limiter, err = NewLeakyBucketLimiter(Rate{Count: 2, Duration: time.Second}, -1)
	ts.Nil(limiter)
	ts.ErrorIs(err, ErrInvalidConfiguration)
}

func (ts *LeakyBucketLimiterTestSuite) TestAllowSequential() {
	limiter, err := NewLeakyBucketLimiterWithOpts(
		Rate{Count: 2, Duration: time.Second}, 1, LeakyBucketLimiterOpts{MaxKeys: 100})
	ts.Require().NoError(err)

	ctx := context.Background()
	key := "test-key"

	// First request should be allowed (burst capacity)
	allow, retryAfter, err := limiter.Allow(ctx, key)
	ts.NoError(err)
	ts.True(allow)
	ts.GreaterOrEqual(retryAfter, time.Duration(-1)) // Can be -1ns for allowed requests

	// Second request should be allowed (burst capacity)
	allow, retryAfter, err = limiter.Allow(ctx, key)
	ts.NoError(err)
	ts.True(allow)
	ts.GreaterOrEqual(retryAfter, time.Duration(-1)) // Can be -1ns for allowed requests

	// Third request should be rate limited
	allow, retryAfter, err = limiter.Allow(ctx, key)
	ts.NoError(err)
	ts.False(allow)
	ts.Greater(retryAfter, time.Duration(0))
}

func (ts *LeakyBucketLimiterTestSuite) TestKeyIsolation() {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 1, Duration: time.Minute}, 0)
	ts.Require().NoError(err)

	ctx := context.Background()

	allow, _, err := limiter.Allow(ctx, "userA")
	ts.NoError(err)
	ts.True(allow)

	allow, _, err = limiter.Allow(ctx, "userA")
	ts.NoError(err)
	ts.False(allow)

	allow, _, err = limiter.Allow(ctx, "userB")
	ts.NoError(err)
	ts.True(allow)
}

func (ts *LeakyBucketLimiterTestSuite) TestDryRun() {
	mc := &testMetricsCollector{}
	limiter, err := NewLeakyBucketLimiterWithOpts(
		Rate{Count: 1, Duration: time.Minute}, 0, LeakyBucketLimiterOpts{DryRun: true, MetricsCollector: mc})
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
