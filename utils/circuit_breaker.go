package utils

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrBreakerOpen is returned while the breaker rejects all calls.
	ErrBreakerOpen = errors.New("circuit breaker is open")

	// ErrBreakerBusy is returned when the half-open probe budget is
	// already spent.
	ErrBreakerBusy = errors.New("circuit breaker is half open and saturated")
)

// BreakerSettings tunes a CircuitBreaker. Zero values fall back to the
// defaults below.
type BreakerSettings struct {
	// MaxRequests is the closed-state sample size required before the
	// failure ratio is evaluated, and the probe budget while half open.
	MaxRequests uint32

	// Interval is how long closed-state counts accumulate before they
	// reset. Without the reset an old burst of failures would trip the
	// breaker long after the dependency recovered.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureRatio is the fraction of failed requests that trips the
	// breaker once MaxRequests have been observed.
	FailureRatio float64
}

const (
	defaultBreakerMaxRequests  = 100
	defaultBreakerInterval     = 60 * time.Second
	defaultBreakerTimeout      = 60 * time.Second
	defaultBreakerFailureRatio = 0.6
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

type breakerCounts struct {
	requests uint32
	failures uint32
}

// CircuitBreaker sheds load from a flapping dependency: it counts
// outcomes while closed, opens once the failure ratio trips, and lets a
// bounded number of probes through after the timeout. Safe for
// concurrent use.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings

	mu         sync.Mutex
	state      State
	counts     breakerCounts
	generation uint64
	expiry     time.Time
}

func NewCircuitBreaker(name string, s BreakerSettings) *CircuitBreaker {
	if s.MaxRequests == 0 {
		s.MaxRequests = defaultBreakerMaxRequests
	}
	if s.Interval == 0 {
		s.Interval = defaultBreakerInterval
	}
	if s.Timeout == 0 {
		s.Timeout = defaultBreakerTimeout
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = defaultBreakerFailureRatio
	}

	cb := &CircuitBreaker{name: name, settings: s, state: StateClosed}
	cb.newGeneration(time.Now())
	return cb
}

// Execute runs req under the breaker. A rejected call returns
// ErrBreakerOpen or ErrBreakerBusy without invoking req; otherwise the
// outcome of req is recorded and returned as-is. A panic in req counts
// as a failure and is re-raised.
func (cb *CircuitBreaker) Execute(req func() (any, error)) (any, error) {
	generation, err := cb.admit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if e := recover(); e != nil {
			cb.record(generation, false)
			panic(e)
		}
	}()

	result, err := req()
	cb.record(generation, err == nil)
	return result, err
}

// State reports the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, _ := cb.currentState(time.Now())
	return state
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, generation := cb.currentState(time.Now())

	switch {
	case state == StateOpen:
		return generation, ErrBreakerOpen
	case state == StateHalfOpen && cb.counts.requests >= cb.settings.MaxRequests:
		return generation, ErrBreakerBusy
	}

	cb.counts.requests++
	return generation, nil
}

// record folds an outcome back in. Outcomes from a previous generation
// are ignored: the request started before the last state change and
// says nothing about the dependency now.
func (cb *CircuitBreaker) record(before uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, generation := cb.currentState(time.Now())
	if generation != before {
		return
	}

	if success {
		if state == StateHalfOpen {
			cb.state = StateClosed
			cb.newGeneration(time.Now())
		}
		return
	}

	cb.counts.failures++
	if cb.tripped() || state == StateHalfOpen {
		cb.state = StateOpen
		cb.newGeneration(time.Now())
	}
}

func (cb *CircuitBreaker) tripped() bool {
	return cb.counts.requests >= cb.settings.MaxRequests &&
		float64(cb.counts.failures)/float64(cb.counts.requests) >= cb.settings.FailureRatio
}

func (cb *CircuitBreaker) currentState(now time.Time) (State, uint64) {
	switch cb.state {
	case StateClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.newGeneration(now)
		}
	case StateOpen:
		if cb.expiry.Before(now) {
			cb.state = StateHalfOpen
			cb.newGeneration(now)
		}
	}
	return cb.state, cb.generation
}

func (cb *CircuitBreaker) newGeneration(now time.Time) {
	cb.generation++
	cb.counts = breakerCounts{}

	switch cb.state {
	case StateClosed:
		cb.expiry = now.Add(cb.settings.Interval)
	case StateOpen:
		cb.expiry = now.Add(cb.settings.Timeout)
	default:
		cb.expiry = time.Time{}
	}
}
