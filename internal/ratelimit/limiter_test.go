package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestIsAllowedWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))
	const n = 3
	window := time.Minute

	for i := range n {
		assert.True(t, l.IsAllowed("login", n, window), "call %d", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, l.IsAllowed("login", n, window), "call n+1 inside the window")

	clock.Advance(window)
	assert.True(t, l.IsAllowed("login", n, window), "window has passed")
}

func TestIsAllowedRejectedCallsAreNotRecorded(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	require.True(t, l.IsAllowed("k", 1, 10*time.Second))
	clock.Advance(5 * time.Second)
	for range 5 {
		require.False(t, l.IsAllowed("k", 1, 10*time.Second))
	}

	// Only the first call counts, so the key frees up 10s after it.
	clock.Advance(5 * time.Second)
	assert.True(t, l.IsAllowed("k", 1, 10*time.Second))
}

func TestIsAllowedKeysAreIndependent(t *testing.T) {
	l := New(WithClock(newFakeClock().Now))

	assert.True(t, l.IsAllowed("a", 1, time.Minute))
	assert.False(t, l.IsAllowed("a", 1, time.Minute))
	assert.True(t, l.IsAllowed("b", 1, time.Minute))
}

func TestIsAllowedZeroQuota(t *testing.T) {
	l := New()
	assert.False(t, l.IsAllowed("k", 0, time.Minute))
}

func TestRemaining(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	assert.Equal(t, 2, l.Remaining("k", 2, time.Minute))
	l.IsAllowed("k", 2, time.Minute)
	assert.Equal(t, 1, l.Remaining("k", 2, time.Minute))
	l.IsAllowed("k", 2, time.Minute)
	l.IsAllowed("k", 2, time.Minute)
	assert.Equal(t, 0, l.Remaining("k", 2, time.Minute))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepEvery(0))

	l.IsAllowed("short", 5, time.Second)
	l.IsAllowed("long", 5, time.Hour)
	require.Equal(t, 2, l.Len())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestAutomaticSweep(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepEvery(10))

	for i := range 9 {
		l.IsAllowed(fmt.Sprintf("user-%d", i), 1, time.Second)
	}
	require.Equal(t, 9, l.Len())

	clock.Advance(time.Minute)
	l.IsAllowed("fresh", 1, time.Second)
	assert.Equal(t, 1, l.Len(), "tenth call sweeps idle keys")
}

func TestResetAndClear(t *testing.T) {
	l := New()
	l.IsAllowed("a", 1, time.Minute)
	l.IsAllowed("b", 1, time.Minute)

	l.Reset("a")
	assert.True(t, l.IsAllowed("a", 1, time.Minute))
	assert.False(t, l.IsAllowed("b", 1, time.Minute))

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.IsAllowed("b", 1, time.Minute))
}

func TestGuard(t *testing.T) {
	l := New(WithClock(newFakeClock().Now))
	calls := 0
	op := func() (string, error) {
		calls++
		return "ok", nil
	}

	got, err := Guard(l, "op", 1, time.Minute, op)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	got, err = Guard(l, "op", 1, time.Minute, op)
	assert.Empty(t, got)
	assert.Equal(t, 1, calls, "rejected call must not run the operation")
	assert.True(t, IsRateLimited(err))
	assert.True(t, errors.Is(err, types.ErrRateLimited))

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "op", rl.Key)
	assert.Equal(t, 1, rl.Limit)
	assert.Equal(t, time.Minute, rl.Window)
}

func TestGuardPassesErrorsThrough(t *testing.T) {
	l := New()
	boom := errors.New("boom")

	_, err := Guard(l, "op", 5, time.Minute, func() (int, error) {
		return 0, boom
	})
	assert.Same(t, boom, err)
	assert.False(t, IsRateLimited(err))
}

func TestLimiterConcurrentUse(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.IsAllowed("shared", 10, time.Hour) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}
