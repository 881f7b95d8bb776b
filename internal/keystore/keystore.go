/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package keystore provides a registry of per-key limiter states.
// The registry may be bounded (LRU eviction, idle expiration) so that memory
// stays limited regardless of the number of distinct keys ever seen.
package keystore

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// MetricsCollector is a collector of statistics about the stored keys.
type MetricsCollector interface {
	// SetKeysAmount sets the total number of tracked keys.
	SetKeysAmount(int)

	// AddKeyEvictions increments the total number of keys evicted by the LRU policy.
	AddKeyEvictions(int)
}

type disabledMetrics struct{}

func (disabledMetrics) SetKeysAmount(int)   {}
func (disabledMetrics) AddKeyEvictions(int) {}

type entry[V any] struct {
	key          string
	value        V
	lastAccessed time.Time
}

// Opts represents options for the Store.
type Opts struct {
	// MaxKeys bounds the number of tracked keys.
	// When the bound is exceeded, the least recently used key is evicted.
	// Zero means the registry is unbounded.
	MaxKeys int

	// IdleTTL is the duration after which a key that received no requests is
	// treated as gone: its state is dropped on access or during periodic
	// cleanup. Zero means keys never expire.
	IdleTTL time.Duration

	// MetricsCollector gathers keys statistics. May be nil.
	MetricsCollector MetricsCollector
}

// Store is a concurrency-safe mapping from key to per-key limiter state.
// Values are created lazily on the first request for a key.
type Store[V any] struct {
	maxKeys int
	idleTTL time.Duration

	mu      sync.RWMutex
	lruList *list.List
	entries map[string]*list.Element

	metricsCollector MetricsCollector

	now func() time.Time
}

// New creates a new Store with the provided options.
func New[V any](opts Opts) (*Store[V], error) {
	if opts.MaxKeys < 0 {
		return nil, fmt.Errorf("max keys must not be negative, got %d", opts.MaxKeys)
	}
	if opts.IdleTTL < 0 {
		return nil, fmt.Errorf("idle TTL must not be negative, got %s", opts.IdleTTL)
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &Store[V]{
		maxKeys:          opts.MaxKeys,
		idleTTL:          opts.IdleTTL,
		lruList:          list.New(),
		entries:          make(map[string]*list.Element),
		metricsCollector: opts.MetricsCollector,
		now:              time.Now,
	}, nil
}

// GetOrCreate returns the state for the key, creating it with newValue on the
// first request. Two concurrent callers with the same new key always observe
// the same created value. The store lock is held only for the lookup/insert
// itself; mutating the returned state is the caller's concern.
func (s *Store[V]) GetOrCreate(key string, newValue func() V) V {
	if s.maxKeys == 0 && s.idleTTL == 0 {
		// Unbounded registry, no LRU bookkeeping is needed on reads.
		s.mu.RLock()
		elem, ok := s.entries[key]
		s.mu.RUnlock()
		if ok {
			return elem.Value.(*entry[V]).value
		}
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		ent := elem.Value.(*entry[V])
		if s.idleTTL == 0 || now.Sub(ent.lastAccessed) < s.idleTTL {
			ent.lastAccessed = now
			if s.maxKeys > 0 {
				s.lruList.MoveToFront(elem)
			}
			return ent.value
		}
		// The key sat idle for too long, its state restarts from scratch.
		s.lruList.Remove(elem)
		delete(s.entries, key)
	}

	value := newValue()
	s.entries[key] = s.lruList.PushFront(&entry[V]{key: key, value: value, lastAccessed: now})
	if s.maxKeys > 0 && len(s.entries) > s.maxKeys {
		s.removeOldest()
		s.metricsCollector.AddKeyEvictions(1)
	}
	s.metricsCollector.SetKeysAmount(len(s.entries))
	return value
}

// Len returns the number of tracked keys.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store[V]) removeOldest() {
	elem := s.lruList.Back()
	if elem == nil {
		return
	}
	s.lruList.Remove(elem)
	delete(s.entries, elem.Value.(*entry[V]).key)
}

// RunPeriodicCleanup runs a cycle of periodic removal of idle keys.
// It does nothing when IdleTTL is not configured.
// It's supposed to be run in a separate goroutine.
func (s *Store[V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	if s.idleTTL == 0 {
		return
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for key, elem := range s.entries {
				if now.Sub(elem.Value.(*entry[V]).lastAccessed) >= s.idleTTL {
					s.lruList.Remove(elem)
					delete(s.entries, key)
				}
			}
			s.metricsCollector.SetKeysAmount(len(s.entries))
			s.mu.Unlock()
		}
	}
}
