/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Limiter interface defines the rate limiting contract.
// Allow reports whether the request identified by the key may proceed now.
// A negative answer is a normal outcome, not an error; retryAfter is then an
// estimate of how long the caller should wait before the next attempt.
// Implementations never block and never consume the caller's budget on denial.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// ErrInvalidConfiguration is returned (wrapped) by limiter constructors
// when the passed parameters make no sense (non-positive capacity or rate).
// It is the only error class in the package: Allow itself is total over keys.
var ErrInvalidConfiguration = errors.New("invalid rate limiter configuration")
