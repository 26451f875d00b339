// Package circuitbreaker guards the syncer's stream I/O: after repeated
// failures it stops hammering the backend for a cooling-off period, then
// lets a single probe through before fully closing again.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type Breaker struct {
	mu sync.Mutex

	state         state
	failures      int
	probeInFlight bool
	openedAt      time.Time

	threshold int
	coolOff   time.Duration
	onOpen    func()
	nowFn     func() time.Time
}

type Option func(*Breaker)

// WithThreshold sets how many consecutive failures open the breaker.
func WithThreshold(n int) Option {
	return func(b *Breaker) { b.threshold = n }
}

// WithCoolOff sets how long the breaker stays open before probing.
func WithCoolOff(d time.Duration) Option {
	return func(b *Breaker) { b.coolOff = d }
}

// WithOnOpen registers a hook invoked each time the breaker opens.
func WithOnOpen(fn func()) Option {
	return func(b *Breaker) { b.onOpen = fn }
}

func New(opts ...Option) *Breaker {
	b := &Breaker{
		threshold: 5,
		coolOff:   30 * time.Second,
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may proceed. In the open state it returns
// ErrOpen until the cool-off elapses, then admits exactly one probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil
	case stateOpen:
		if b.nowFn().Sub(b.openedAt) < b.coolOff {
			return ErrOpen
		}
		b.state = stateHalfOpen
		b.probeInFlight = true
		return nil
	default: // half-open
		if b.probeInFlight {
			return ErrOpen
		}
		b.probeInFlight = true
		return nil
	}
}

// Record feeds a call outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = stateClosed
		b.failures = 0
		b.probeInFlight = false
		return
	}

	switch b.state {
	case stateHalfOpen:
		b.open()
	case stateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.open()
		}
	}
}

// open transitions to the open state; callers hold the lock.
func (b *Breaker) open() {
	b.state = stateOpen
	b.failures = 0
	b.probeInFlight = false
	b.openedAt = b.nowFn()
	if b.onOpen != nil {
		b.onOpen()
	}
}
