// Package ratelimit provides a per-key sliding-window request limiter and a
// Guard helper that runs an operation only when the limiter admits it.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// defaultSweepEvery is how many IsAllowed calls pass between automatic
// sweeps of idle keys.
const defaultSweepEvery = 1024

// Limiter tracks request timestamps per key.
//
// Keys whose timestamps have all left their window are dropped by Sweep,
// which also runs automatically every sweepEvery calls.
type Limiter struct {
	mu         sync.Mutex
	hits       map[string][]time.Time
	windows    map[string]time.Duration
	now        func() time.Time
	sweepEvery int
	calls      int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepEvery sets the number of calls between automatic sweeps.
// n <= 0 disables automatic sweeping.
func WithSweepEvery(n int) Option {
	return func(l *Limiter) { l.sweepEvery = n }
}

// New returns an empty limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		hits:       make(map[string][]time.Time),
		windows:    make(map[string]time.Duration),
		now:        time.Now,
		sweepEvery: defaultSweepEvery,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsAllowed reports whether one more request under key fits in
// maxRequests per window. An allowed request is recorded; a rejected one is
// not, so rejected callers do not extend their own lockout.
func (l *Limiter) IsAllowed(key string, maxRequests int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.sweepEvery > 0 && l.calls%l.sweepEvery == 0 {
		l.sweepLocked(now)
	}

	kept := prune(l.hits[key], now.Add(-window))
	l.windows[key] = window

	if len(kept) >= maxRequests {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// Remaining returns how many more requests key may make right now.
func (l *Limiter) Remaining(key string, maxRequests int, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.hits[key], l.now().Add(-window))
	return max(maxRequests-len(kept), 0)
}

// Sweep drops every key with no timestamp inside its last used window and
// returns the number of keys removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

func (l *Limiter) sweepLocked(now time.Time) int {
	removed := 0
	for key, ts := range l.hits {
		kept := prune(ts, now.Add(-l.windows[key]))
		if len(kept) == 0 {
			delete(l.hits, key)
			delete(l.windows, key)
			removed++
			continue
		}
		l.hits[key] = kept
	}
	return removed
}

// Reset forgets the history of key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
	delete(l.windows, key)
}

// Clear forgets every key.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[string][]time.Time)
	l.windows = make(map[string]time.Duration)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// prune drops timestamps at or before cutoff. ts is in ascending order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append([]time.Time(nil), ts[i:]...)
}

// Guard runs fn when limiter admits one more request under key and returns
// fn's result unchanged. When the quota is exhausted fn is not called and a
// *RateLimitedError is returned.
func Guard[T any](l *Limiter, key string, maxRequests int, window time.Duration, fn func() (T, error)) (T, error) {
	if !l.IsAllowed(key, maxRequests, window) {
		var zero T
		return zero, &RateLimitedError{Key: key, Limit: maxRequests, Window: window}
	}
	return fn()
}

// RateLimitedError is returned when a guarded operation exceeds its quota.
type RateLimitedError struct {
	Key    string        // limiter key that was exhausted
	Limit  int           // maximum requests per window
	Window time.Duration // window length
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s exceeded %d requests per %s", e.Key, e.Limit, e.Window)
}

// Is makes errors.Is(err, types.ErrRateLimited) match.
func (e *RateLimitedError) Is(target error) bool {
	return target == types.ErrRateLimited
}

// IsRateLimited returns true if err is or wraps a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
