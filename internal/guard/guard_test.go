package guard

import (
	"errors"
	"testing"
	"time"
)

type fakeSink struct {
	raised   []string
	resolved []string
}

func (f *fakeSink) Raise(key, message string) { f.raised = append(f.raised, key) }
func (f *fakeSink) Resolve(key string)        { f.resolved = append(f.resolved, key) }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestBreaker_OpensAfterThresholdAndFailsFast(t *testing.T) {
	sink := &fakeSink{}
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := NewWithClock("engagement-api", sink, clock.Now)

	calls := 0
	failing := func() error {
		calls++
		return errors.New("rate limited")
	}

	for i := 0; i < DefaultFailureThreshold; i++ {
		attempted, err := b.Do(failing)
		if !attempted {
			t.Fatalf("attempt %d should have been allowed", i+1)
		}
		if err == nil {
			t.Fatalf("attempt %d should have returned the upstream error", i+1)
		}
	}
	if calls != DefaultFailureThreshold {
		t.Fatalf("expected %d real calls, got %d", DefaultFailureThreshold, calls)
	}
	if len(sink.raised) != 1 || sink.raised[0] != "circuit:engagement-api" {
		t.Fatalf("expected one raised alert, got %v", sink.raised)
	}

	// 6th call: circuit open, underlying fetch must not run.
	attempted, err := b.Do(failing)
	if attempted || err != nil {
		t.Fatalf("expected skipped call, got attempted=%v err=%v", attempted, err)
	}
	if calls != DefaultFailureThreshold {
		t.Fatalf("expected no extra real call, got %d", calls)
	}
}

func TestBreaker_CooldownElapsesThenRetries(t *testing.T) {
	sink := &fakeSink{}
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := NewWithClock("analytics", sink, clock.Now)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure(errors.New("boom"))
	}
	if b.Allow() {
		t.Fatalf("circuit should be open")
	}

	clock.Advance(DefaultCooldown - time.Second)
	if b.Allow() {
		t.Fatalf("circuit should still be open inside the cooldown")
	}

	clock.Advance(2 * time.Second)
	calls := 0
	attempted, err := b.Do(func() error { calls++; return nil })
	if !attempted || err != nil || calls != 1 {
		t.Fatalf("expected real call after cooldown, got attempted=%v err=%v calls=%d", attempted, err, calls)
	}
	if len(sink.resolved) != 1 {
		t.Fatalf("success after a failure run should resolve the alert, got %v", sink.resolved)
	}
}

func TestBreaker_ReopensWhenFailuresContinueAfterCooldown(t *testing.T) {
	sink := &fakeSink{}
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := NewWithClock("dispatch:x", sink, clock.Now)

	calls := 0
	failing := func() error {
		calls++
		return errors.New("upstream down")
	}

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.Do(failing)
	}
	if b.Allow() {
		t.Fatalf("circuit should be open after %d failures", DefaultFailureThreshold)
	}

	// Cooldown elapses, the retry is allowed but still fails. That failure
	// must arm a fresh cooldown, not leave the circuit closed.
	clock.Advance(DefaultCooldown + time.Second)
	attempted, err := b.Do(failing)
	if !attempted || err == nil {
		t.Fatalf("expected a real failing retry, got attempted=%v err=%v", attempted, err)
	}
	if b.Allow() {
		t.Fatalf("circuit should reopen after a post-cooldown failure")
	}

	attempted, err = b.Do(failing)
	if attempted || err != nil {
		t.Fatalf("expected skipped call on reopened circuit, got attempted=%v err=%v", attempted, err)
	}
	if calls != DefaultFailureThreshold+1 {
		t.Fatalf("expected %d real calls, got %d", DefaultFailureThreshold+1, calls)
	}

	// The whole run is one incident: a single raised alert.
	if len(sink.raised) != 1 {
		t.Fatalf("expected one raised alert for the run, got %v", sink.raised)
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	sink := &fakeSink{}
	b := New("dispatch:x", sink)

	b.RecordFailure(errors.New("a"))
	b.RecordFailure(errors.New("b"))
	if b.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", b.Failures())
	}

	b.RecordSuccess()
	if b.Failures() != 0 {
		t.Fatalf("expected counter reset, got %d", b.Failures())
	}
	// Only 2 consecutive failures before the success: no alert raised, none resolved.
	if len(sink.raised) != 0 || len(sink.resolved) != 0 {
		t.Fatalf("unexpected alerting raised=%v resolved=%v", sink.raised, sink.resolved)
	}

	// Counter starts over: threshold-1 more failures must not open the circuit.
	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure(errors.New("c"))
	}
	if !b.Allow() {
		t.Fatalf("circuit should still be closed under the threshold")
	}
}

func TestRegistry_OneBreakerPerUpstream(t *testing.T) {
	r := NewRegistry(&fakeSink{})
	a := r.For("engagement-api")
	b := r.For("dispatch:facebook")
	if a == b {
		t.Fatalf("expected independent breakers per upstream")
	}
	if r.For("engagement-api") != a {
		t.Fatalf("expected the same breaker for the same upstream")
	}

	a.RecordFailure(errors.New("x"))
	if b.Failures() != 0 {
		t.Fatalf("failure on one upstream must not leak to another")
	}
}
