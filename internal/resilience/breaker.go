// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package resilience provides a circuit breaker for calls to external
// collaborators such as the rendering tool.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker opens after maxFailures consecutive failures and rejects calls
// until cooldown has elapsed. The next call is then let through as a probe
// (half-open); its outcome closes or re-opens the circuit.
type Breaker struct {
	name        string
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	now         func() time.Time // for testing
}

// NewBreaker creates a named circuit breaker. A maxFailures below 1 is
// treated as 1.
func NewBreaker(name string, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(fn func() error) error {
	return b.ExecuteIgnoring(fn, nil)
}

// ExecuteIgnoring is Execute, except that errors for which ignore reports
// true are returned without changing the breaker's state: they count as
// neither a failure nor a success.
func (b *Breaker) ExecuteIgnoring(fn func() error, ignore func(error) bool) error {
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && ignore != nil && ignore(err) {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.state = StateHalfOpen
			return true
		}
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		if b.state != StateOpen {
			slog.Warn("circuit breaker opened", "breaker", b.name, "failures", b.failures)
		}
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	if b.state != StateClosed {
		slog.Info("circuit breaker closed", "breaker", b.name)
	}
	b.failures = 0
	b.state = StateClosed
}
