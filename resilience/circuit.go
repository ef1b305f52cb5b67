package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through.
	StateClosed State = iota
	// StateOpen means calls fail fast.
	StateOpen
	// StateHalfOpen means a bounded number of trial calls are allowed.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state as its upper-case name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EffectiveState is the state a breaker is in at now. An OPEN breaker whose
// next attempt time has passed is HALF_OPEN; every other state is unchanged.
func EffectiveState(state State, now, nextAttempt time.Time) State {
	if state == StateOpen && !now.Before(nextAttempt) {
		return StateHalfOpen
	}
	return state
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening the circuit.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a trial call.
	// Default: 60 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of trial calls admitted while
	// half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called after every state change, outside the lock.
	OnStateChange func(from, to State)

	// Clock drives the reset timeout. Default: wall clock.
	Clock Clock
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 60 * time.Second
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = 1
	}
	if c.Clock == nil {
		c.Clock = RealClock()
	}
	return c
}

// CircuitBreaker is a failure-counting state machine. Transitions from OPEN
// to HALF_OPEN happen lazily when the breaker is consulted, never on a timer.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	halfOpenCount   int
	// halfOpenGen identifies the current half-open period so a trial slot
	// is never returned to a later one.
	halfOpenGen uint64
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config.withDefaults(),
		state:  StateClosed,
	}
}

type transition struct{ from, to State }

func (cb *CircuitBreaker) notify(ts []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, t := range ts {
		cb.config.OnStateChange(t.from, t.to)
	}
}

// advanceLocked applies the lazy OPEN -> HALF_OPEN transition.
func (cb *CircuitBreaker) advanceLocked(ts []transition) []transition {
	eff := EffectiveState(cb.state, cb.config.Clock.Now(), cb.nextAttemptTime)
	if eff != cb.state {
		ts = append(ts, transition{cb.state, eff})
		cb.state = eff
		cb.halfOpenCount = 0
		cb.halfOpenGen++
	}
	return ts
}

// IsOpen reports whether calls must be rejected. While half-open it admits up
// to HalfOpenMaxRequests trial calls and rejects the rest; each admitted call
// must be followed by RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) IsOpen() bool {
	open, _ := cb.admit()
	return open
}

// admit is IsOpen that also returns the half-open period whose trial slot the
// call took, or 0 when it took none.
func (cb *CircuitBreaker) admit() (open bool, trial uint64) {
	cb.mu.Lock()
	ts := cb.advanceLocked(nil)
	switch cb.state {
	case StateOpen:
		open = true
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			open = true
		} else {
			cb.halfOpenCount++
			trial = cb.halfOpenGen
		}
	}
	cb.mu.Unlock()

	cb.notify(ts)
	return open, trial
}

// releaseTrial gives back a trial slot taken by admit when the call ended
// without a verdict, e.g. rejected by the rate limiter. It is a no-op once the
// breaker has left that half-open period.
func (cb *CircuitBreaker) releaseTrial(trial uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if trial == 0 || cb.state != StateHalfOpen || cb.halfOpenGen != trial {
		return
	}
	if cb.halfOpenCount > 0 {
		cb.halfOpenCount--
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var ts []transition
	if cb.state != StateClosed {
		ts = append(ts, transition{cb.state, StateClosed})
	}
	cb.state = StateClosed
	cb.failureCount = 0
	cb.halfOpenCount = 0
	cb.mu.Unlock()

	cb.notify(ts)
}

// RecordFailure counts a failure. A half-open breaker re-opens immediately; a
// closed breaker opens once the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	now := cb.config.Clock.Now()
	ts := cb.advanceLocked(nil)

	cb.failureCount++
	cb.lastFailureTime = now

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			ts = append(ts, transition{StateClosed, StateOpen})
			cb.openLocked(now)
		}
	case StateHalfOpen:
		ts = append(ts, transition{StateHalfOpen, StateOpen})
		cb.openLocked(now)
	case StateOpen:
		cb.nextAttemptTime = now.Add(cb.config.ResetTimeout)
	}
	cb.mu.Unlock()

	cb.notify(ts)
}

func (cb *CircuitBreaker) openLocked(now time.Time) {
	cb.state = StateOpen
	cb.nextAttemptTime = now.Add(cb.config.ResetTimeout)
	cb.halfOpenCount = 0
}

// Reset returns the breaker to its initial state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	var ts []transition
	if cb.state != StateClosed {
		ts = append(ts, transition{cb.state, StateClosed})
	}
	cb.state = StateClosed
	cb.failureCount = 0
	cb.lastFailureTime = time.Time{}
	cb.nextAttemptTime = time.Time{}
	cb.halfOpenCount = 0
	cb.mu.Unlock()

	cb.notify(ts)
}

// State returns the effective state without consuming a half-open slot.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	ts := cb.advanceLocked(nil)
	s := cb.state
	cb.mu.Unlock()

	cb.notify(ts)
	return s
}

// Snapshot returns a copy of the breaker's state.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	ts := cb.advanceLocked(nil)
	snap := BreakerSnapshot{
		State:        cb.state,
		FailureCount: cb.failureCount,
	}
	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		snap.LastFailureTime = &t
	}
	if cb.state == StateOpen {
		t := cb.nextAttemptTime
		snap.NextAttemptTime = &t
	}
	cb.mu.Unlock()

	cb.notify(ts)
	return snap
}

// BreakerSnapshot is the serializable view of a circuit breaker.
type BreakerSnapshot struct {
	State           State      `json:"state"`
	FailureCount    int        `json:"failureCount"`
	LastFailureTime *time.Time `json:"lastFailureTime,omitempty"`
	NextAttemptTime *time.Time `json:"nextAttemptTime,omitempty"`
}
