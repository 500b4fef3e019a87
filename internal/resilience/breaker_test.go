package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func passing() error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected errBoom, got %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state: got %s, want open", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while the circuit is open")
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker("test", 2, time.Minute)

	_ = b.Execute(failing)
	_ = b.Execute(passing)
	_ = b.Execute(failing)

	if b.State() != StateClosed {
		t.Errorf("state: got %s, want closed", b.State())
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("test", 1, 10*time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(failing)
	if b.State() != StateOpen {
		t.Fatalf("state: got %s, want open", b.State())
	}

	// Still cooling down.
	now = now.Add(5 * time.Second)
	if err := b.Execute(passing); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen during cooldown, got %v", err)
	}

	// Probe fails: straight back to open.
	now = now.Add(10 * time.Second)
	if err := b.Execute(failing); !errors.Is(err, errBoom) {
		t.Fatalf("expected probe error, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state after failed probe: got %s, want open", b.State())
	}

	// Probe succeeds: closed.
	now = now.Add(10 * time.Second)
	if err := b.Execute(passing); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state after successful probe: got %s, want closed", b.State())
	}
}

var errIgnored = errors.New("caller went away")

func ignored() error { return errIgnored }
func isIgnored(err error) bool { return errors.Is(err, errIgnored) }

func TestIgnoredErrorKeepsFailureCount(t *testing.T) {
	b := NewBreaker("test", 2, time.Minute)

	_ = b.ExecuteIgnoring(failing, isIgnored)
	if err := b.ExecuteIgnoring(ignored, isIgnored); !errors.Is(err, errIgnored) {
		t.Fatalf("expected ignored error to be returned, got %v", err)
	}
	_ = b.ExecuteIgnoring(failing, isIgnored)

	if b.State() != StateOpen {
		t.Errorf("state after fail, ignored, fail: got %s, want open", b.State())
	}
}

func TestIgnoredErrorLeavesHalfOpen(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("test", 1, 10*time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(failing)
	now = now.Add(10 * time.Second)

	if err := b.ExecuteIgnoring(ignored, isIgnored); !errors.Is(err, errIgnored) {
		t.Fatalf("expected ignored error, got %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state after ignored trial call: got %s, want half-open", b.State())
	}

	// The next trial call still decides.
	_ = b.ExecuteIgnoring(failing, isIgnored)
	if b.State() != StateOpen {
		t.Errorf("state after failed trial call: got %s, want open", b.State())
	}
}

func TestNewBreakerClampsMaxFailures(t *testing.T) {
	b := NewBreaker("test", 0, time.Minute)
	_ = b.Execute(failing)
	if b.State() != StateOpen {
		t.Errorf("state: got %s, want open", b.State())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
