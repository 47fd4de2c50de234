// Package session implements the inactivity guard that forces a logout
// when no user interaction is observed for the configured timeout.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the inactivity window used when none is configured.
const DefaultTimeout = 30 * time.Minute

// State is the guard's position in its lifecycle.
type State int

// Guard states.
const (
	Unauthenticated State = iota
	Active
	Expired
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Active:
		return "active"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Interaction events that count as user activity.
const (
	EventPointerDown = "pointerdown"
	EventKeyDown     = "keydown"
	EventScroll      = "scroll"
	EventTouchStart  = "touchstart"
	EventClick       = "click"
)

var activityEvents = map[string]bool{
	EventPointerDown: true,
	EventKeyDown:     true,
	EventScroll:      true,
	EventTouchStart:  true,
	EventClick:       true,
}

// IsActivity reports whether event is a recognized interaction event.
func IsActivity(event string) bool {
	return activityEvents[event]
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Guard tracks one session. It is safe for concurrent use.
type Guard struct {
	mu        sync.Mutex
	state     State
	timeout   time.Duration
	timer     Timer
	gen       uint64
	afterFunc AfterFunc
	onExpire  func()
	log       *zap.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithTimeout sets the inactivity window. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithAfterFunc replaces the timer factory.
func WithAfterFunc(fn AfterFunc) Option {
	return func(g *Guard) { g.afterFunc = fn }
}

// WithOnExpire sets the callback run when the countdown elapses. It
// performs the forced logout.
func WithOnExpire(fn func()) Option {
	return func(g *Guard) { g.onExpire = fn }
}

// WithLogger sets the guard's logger.
func WithLogger(log *zap.Logger) Option {
	return func(g *Guard) { g.log = log }
}

// New returns a guard in the Unauthenticated state with no timer armed.
func New(opts ...Option) *Guard {
	g := &Guard{
		timeout:   DefaultTimeout,
		afterFunc: systemAfterFunc,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Timeout returns the inactivity window.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}

// Authenticate records the outcome of an identity check. A successful
// check enters Active and arms a fresh countdown; a failed one leaves the
// guard Unauthenticated with no timer.
func (g *Guard) Authenticate(ok bool) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.disarm()
	if !ok {
		g.state = Unauthenticated
		g.log.Debug("session not authenticated")
		return g.state
	}
	g.state = Active
	g.arm()
	g.log.Debug("session active", zap.Duration("timeout", g.timeout))
	return g.state
}

// Observe handles an interaction event. While Active a recognized event
// rearms the countdown and Observe returns true. Events are ignored in any
// other state.
func (g *Guard) Observe(event string) bool {
	if !IsActivity(event) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Active {
		return false
	}
	g.disarm()
	g.arm()
	return true
}

// Stop disarms the countdown without changing state.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disarm()
}

// Logout moves an Active guard to Unauthenticated without running the
// expiry callback.
func (g *Guard) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disarm()
	g.state = Unauthenticated
}

// arm and disarm require g.mu.
func (g *Guard) arm() {
	g.gen++
	gen := g.gen
	g.timer = g.afterFunc(g.timeout, func() { g.expire(gen) })
}

func (g *Guard) disarm() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// expire runs from the timer. A countdown that was rearmed or disarmed in
// the meantime carries a stale generation and does nothing.
func (g *Guard) expire(gen uint64) {
	g.mu.Lock()
	if gen != g.gen || g.state != Active {
		g.mu.Unlock()
		return
	}
	g.state = Expired
	g.timer = nil
	onExpire := g.onExpire
	g.mu.Unlock()

	g.log.Info("session expired after inactivity", zap.Duration("timeout", g.timeout))
	if onExpire != nil {
		onExpire()
	}
}
