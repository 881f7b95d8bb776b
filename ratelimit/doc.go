/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides per-key rate limiting to control the rate
// at which requests are processed over time.
//
// Each caller is identified by an opaque key (user id, API key, IP address)
// and gets its own independent limiter state. State for a key is created
// lazily on its first request, and replenishment is computed on access,
// so no background timers are involved.
//
// Key features:
//   - Token bucket, leaky bucket (GCRA) and sliding window algorithms
//     behind the common Limiter interface
//   - Optional LRU/TTL bounding of the tracked key set for memory efficiency
//   - Non-blocking admission checks suitable for hot request paths
//   - Dry-run mode for shadow rollout of new limits
//   - Prometheus metrics and structured logging hooks
package ratelimit
