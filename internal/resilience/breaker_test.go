package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUnavailable = errors.New("service unavailable")

func failTimes(b *Breaker, n int) {
	for range n {
		_ = b.Execute(func() error { return errUnavailable })
	}
}

func TestClosedAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Fatal("fn not called")
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	failTimes(b, 3)

	err := b.Execute(func() error {
		t.Fatal("fn called while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)
	failTimes(b, 2)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// The two earlier failures no longer count.
	failTimes(b, 2)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after reset: %v", err)
	}
}

func TestHalfOpenProbeAfterCooldown(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	failTimes(b, 1)
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	// After the cooldown one probe goes through; success closes the circuit.
	clock = clock.Add(time.Minute)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("after close: %v", err)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	failTimes(b, 1)
	clock = clock.Add(time.Minute)

	// Failed probe reopens immediately.
	if err := b.Execute(func() error { return errUnavailable }); !errors.Is(err, errUnavailable) {
		t.Fatalf("probe err = %v", err)
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}
