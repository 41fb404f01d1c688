// Package breaker implements the per-operation-class circuit breaker (C4).
// Each operation class gets its own mutex-guarded instance; a Registry maps
// review.OperationClass to instance, generalizing the teacher's
// config.ChainRegistry "small struct behind a registry, no global
// singleton" shape.
package breaker

import (
	"sync"
	"time"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

// Config tunes one operation class's breaker.
type Config struct {
	Threshold      int           // consecutive failures before opening
	OpenDuration   time.Duration // base cool-off period
	BackoffFactor  float64       // multiplier applied per consecutive half-open failure
	MaxOpenDuration time.Duration
}

// DefaultConfig returns reasonable defaults, overridden per class by the
// ResilienceRegistry in pkg/config.
func DefaultConfig() Config {
	return Config{
		Threshold:       5,
		OpenDuration:    30 * time.Second,
		BackoffFactor:   2,
		MaxOpenDuration: 10 * time.Minute,
	}
}

// Breaker is one operation class's circuit breaker instance. All state
// transitions are serialized by mu; there is no locking on any other
// package's hot path because callers only ever call Admit/Record.
type Breaker struct {
	mu     sync.Mutex
	cfg    Config
	state  review.CircuitState
	nowFn  func() time.Time
}

// New constructs a breaker for class in the CLOSED state.
func New(class review.OperationClass, cfg Config) *Breaker {
	return &Breaker{
		cfg:   cfg,
		state: review.CircuitState{Class: class, Phase: review.BreakerClosed},
		nowFn: time.Now,
	}
}

// ErrOpen is returned by Admit when the breaker is fail-fasting.
type ErrOpen struct{ Class review.OperationClass }

func (e ErrOpen) Error() string {
	return "circuit open for operation class " + string(e.Class)
}

// Admit reports whether a call may proceed. If the breaker is OPEN and the
// open-duration has not yet elapsed, it returns ErrOpen without invoking
// anything. If the open-duration has elapsed, it transitions to HALF_OPEN
// and admits exactly one probe; concurrent callers racing this transition
// only ever see one of them admitted, since the check-and-transition is
// done under the lock.
func (b *Breaker) Admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state.Phase {
	case review.BreakerClosed:
		return nil
	case review.BreakerHalfOpen:
		// A probe is already in flight; reject concurrent entrants.
		return ErrOpen{Class: b.state.Class}
	case review.BreakerOpen:
		elapsed := b.nowFn().Sub(b.state.OpenSince)
		if elapsed < b.currentOpenDuration() {
			return ErrOpen{Class: b.state.Class}
		}
		b.state.Phase = review.BreakerHalfOpen
		return nil
	default:
		return nil
	}
}

// Record reports the outcome of a call previously admitted by Admit.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state.Phase {
	case review.BreakerClosed:
		if success {
			b.state.ConsecutiveFailures = 0
			return
		}
		b.state.ConsecutiveFailures++
		if b.state.ConsecutiveFailures >= b.cfg.Threshold {
			b.state.Phase = review.BreakerOpen
			b.state.OpenSince = b.nowFn()
			b.state.ConsecutiveFailures = 0
			b.state.ConsecutiveHalfOpenFails = 0
		}
	case review.BreakerHalfOpen:
		if success {
			b.state.Phase = review.BreakerClosed
			b.state.ConsecutiveFailures = 0
			b.state.ConsecutiveHalfOpenFails = 0
			return
		}
		b.state.ConsecutiveHalfOpenFails++
		b.state.Phase = review.BreakerOpen
		b.state.OpenSince = b.nowFn()
	case review.BreakerOpen:
		// A result arriving after the window reopened (e.g. a stale
		// goroutine) is ignored; Admit is the sole gate for state.
	}
}

// currentOpenDuration computes the exponentially-extended open window,
// capped at MaxOpenDuration. Must be called with mu held.
func (b *Breaker) currentOpenDuration() time.Duration {
	d := b.cfg.OpenDuration
	for i := 0; i < b.state.ConsecutiveHalfOpenFails; i++ {
		d = time.Duration(float64(d) * b.cfg.BackoffFactor)
		if d > b.cfg.MaxOpenDuration {
			return b.cfg.MaxOpenDuration
		}
	}
	return d
}

// Snapshot returns a copy of the current state for observability.
func (b *Breaker) Snapshot() review.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Registry maps operation classes to their breaker instances.
type Registry struct {
	mu       sync.RWMutex
	breakers map[review.OperationClass]*Breaker
}

// NewRegistry builds a registry from a configuration per class. Classes not
// present in cfgs fall back to DefaultConfig() lazily on first use.
func NewRegistry(cfgs map[review.OperationClass]Config) *Registry {
	r := &Registry{breakers: make(map[review.OperationClass]*Breaker, len(cfgs))}
	for class, cfg := range cfgs {
		r.breakers[class] = New(class, cfg)
	}
	return r
}

// Get returns the breaker for class, creating one with default
// configuration if it does not yet exist.
func (r *Registry) Get(class review.OperationClass) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[class]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[class]; ok {
		return b
	}
	b = New(class, DefaultConfig())
	r.breakers[class] = b
	return b
}
