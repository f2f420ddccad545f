package gateway

import (
	"testing"
	"time"
)

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(breakerConfig{FailureThreshold: 2, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return now }

	b.record(outcomeFailure)
	if b.current() != stateClosed {
		t.Fatalf("one failure must not open the circuit")
	}
	b.record(outcomeFailure)
	if b.current() != stateOpen {
		t.Fatalf("expected open after threshold, got %s", b.current())
	}
	if b.allow() {
		t.Fatalf("open circuit must reject calls during cooldown")
	}

	now = now.Add(11 * time.Second)
	if !b.allow() {
		t.Fatalf("expected a trial call after cooldown")
	}
	if b.allow() {
		t.Fatalf("only one trial call is allowed while half-open")
	}

	b.record(outcomeSuccess)
	if b.current() != stateClosed {
		t.Fatalf("successful trial must close the circuit, got %s", b.current())
	}
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(breakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	b.record(outcomeFailure)
	now = now.Add(2 * time.Second)
	if !b.allow() {
		t.Fatalf("expected trial call")
	}
	b.record(outcomeFailure)

	if b.current() != stateOpen {
		t.Fatalf("failed trial must reopen, got %s", b.current())
	}
	if b.allow() {
		t.Fatalf("reopened circuit must reject immediately")
	}
}

func TestBreaker_NeutralOutcomeLeavesStateAlone(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(breakerConfig{FailureThreshold: 2, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	b.record(outcomeFailure)
	b.record(outcomeNeutral)
	b.record(outcomeFailure)
	if b.current() != stateOpen {
		t.Fatalf("neutral outcome must not reset the failure count, got %s", b.current())
	}

	now = now.Add(2 * time.Second)
	if !b.allow() {
		t.Fatalf("expected trial call")
	}
	b.record(outcomeNeutral)
	if b.current() != stateHalfOpen {
		t.Fatalf("neutral trial must keep the circuit half-open, got %s", b.current())
	}
	if !b.allow() {
		t.Fatalf("neutral trial must free its slot")
	}
	b.record(outcomeSuccess)
	if b.current() != stateClosed {
		t.Fatalf("expected closed after successful trial, got %s", b.current())
	}
}
