// Package breaker implements the per-provider circuit breaker guarding
// model provider calls.
//
// One Breaker instance exists per provider for the process lifetime and is
// shared by every concurrent job targeting that provider. State
// transitions are serialized under a mutex so two jobs racing to flip a
// breaker open or half-open cannot lose updates.
package breaker

import (
	"sync"
	"time"

	"github.com/complyforge/complyforge/errors"
)

// State of a circuit breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrOpen is returned by Allow when the breaker rejects a call without a
// network attempt. Callers advance to the next provider in the fallback
// chain; an ErrOpen rejection never counts as a new failure.
var ErrOpen = errors.New("circuit breaker open")

// Options configures breaker behavior.
type Options struct {
	Threshold int           // consecutive failures before opening (default: 5)
	Cooldown  time.Duration // time the breaker stays open (default: 30s)
}

// DefaultOptions returns the standard breaker configuration.
func DefaultOptions() Options {
	return Options{
		Threshold: 5,
		Cooldown:  30 * time.Second,
	}
}

// Breaker is a three-state circuit breaker: closed, open, half-open.
//
// Half-open policy: exactly one trial call is admitted. A second call
// arriving while the trial is in flight is rejected like an open breaker
// (it does not queue behind the trial and does not bypass it). The trial's
// outcome decides the next state: success closes the breaker, failure
// re-opens it and restarts the cooldown.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailure         time.Time
	trialInFlight       bool
}

// New creates a closed breaker. Zero option fields fall back to defaults.
func New(name string, opts Options) *Breaker {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultOptions().Cooldown
	}
	return &Breaker{
		name:      name,
		threshold: opts.Threshold,
		cooldown:  opts.Cooldown,
		state:     StateClosed,
	}
}

// Allow reports whether a call may proceed. In the open state it rejects
// until the cooldown has elapsed, then transitions to half-open and admits
// the single trial call in the same step.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(b.lastFailure) < b.cooldown {
			return errors.Wrapf(ErrOpen, "provider %s cooling down", b.name)
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		return nil

	case StateHalfOpen:
		if b.trialInFlight {
			return errors.Wrapf(ErrOpen, "provider %s trial call in flight", b.name)
		}
		b.trialInFlight = true
		return nil
	}

	return nil
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFailures = 0
	b.trialInFlight = false
}

// RecordFailure increments the consecutive-failure counter and opens the
// breaker when the threshold is reached. A half-open trial failure
// re-opens immediately and restarts the cooldown clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.lastFailure = time.Now()
		b.trialInFlight = false
		return
	}

	if b.consecutiveFailures >= b.threshold {
		b.state = StateOpen
		b.lastFailure = time.Now()
	}
}

// State returns the current state, accounting for an elapsed cooldown
// (an open breaker past its cooldown reports half-open readiness only via
// Allow; State reports the stored state).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

// Name returns the provider name this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}
