package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Refusing requests
	StateHalfOpen              // One trial request in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

type Breaker struct {
	mutex        sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	trialPending bool

	threshold    int
	resetTimeout time.Duration
	now          func() time.Time
}

type Option func(*Breaker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// New returns a breaker that opens after threshold consecutive failures.
// A threshold below 1 returns nil, a breaker that always allows.
func New(threshold int, resetTimeout time.Duration, opts ...Option) *Breaker {
	if threshold < 1 {
		return nil
	}

	b := &Breaker{
		state:        StateClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Allow reports whether a request may proceed. In HALF-OPEN only the first
// caller gets through until that trial is recorded.
func (b *Breaker) Allow() bool {
	if b == nil {
		return true
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.trialPending = true
		return true

	case StateHalfOpen:
		if b.trialPending {
			return false
		}
		b.trialPending = true
		return true

	default:
		return true
	}
}

func (b *Breaker) Success() {
	if b == nil {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures = 0
	b.trialPending = false
	b.state = StateClosed
}

func (b *Breaker) Failure() {
	if b == nil {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures++
	b.trialPending = false

	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

func (b *Breaker) State() State {
	if b == nil {
		return StateClosed
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}
