// Package guard isolates flaky upstreams behind a circuit breaker: a burst of
// consecutive failures opens the circuit and later calls fail fast with an
// absent result instead of retrying a broken dependency.
package guard

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/alerts"
	"github.com/pressroomhq/social-scheduler/internal/metrics"
)

const (
	// DefaultFailureThreshold is how many consecutive failures open the circuit.
	DefaultFailureThreshold = 5
	// DefaultCooldown is how long an open circuit stays open.
	DefaultCooldown = 30 * time.Minute
	// alertAfter is the consecutive-failure count past which a later success
	// resolves the operator alert.
	alertAfter = 3
)

// Breaker tracks consecutive failures for a single upstream dependency. State
// is process-local by design: it is an optimization, not a source of truth,
// and resets on restart.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	sink      alerts.Sink
	now       func() time.Time

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// New returns a breaker for the named upstream with spec defaults.
func New(name string, sink alerts.Sink) *Breaker {
	return &Breaker{
		name:      name,
		threshold: DefaultFailureThreshold,
		cooldown:  DefaultCooldown,
		sink:      sink,
		now:       time.Now,
	}
}

// NewWithClock is New with an injected clock, for tests.
func NewWithClock(name string, sink alerts.Sink, now func() time.Time) *Breaker {
	b := New(name, sink)
	b.now = now
	return b
}

// Allow reports whether a real attempt may proceed. When the circuit is open
// the caller must skip the attempt and treat the result as absent.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.now().Before(b.openUntil)
}

// RecordSuccess resets the failure counter and closes the circuit. A success
// after a run of 3+ failures resolves the operator alert.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	hadRun := b.failures >= alertAfter
	b.failures = 0
	b.openUntil = time.Time{}
	b.mu.Unlock()

	if hadRun {
		b.sink.Resolve(b.alertKey())
	}
}

// RecordFailure increments the consecutive-failure counter. At and beyond
// the threshold every failure re-arms the open window, so a probe attempt
// after the cooldown that still fails closes the circuit again for a full
// cooldown. The operator alert fires once per failure run.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	b.failures++
	failures := b.failures
	opened := failures >= b.threshold
	first := failures == b.threshold
	if opened {
		b.openUntil = b.now().Add(b.cooldown)
	}
	b.mu.Unlock()

	if first {
		metrics.RecordBreakerOpen(b.name)
		log.Printf("[Guard] circuit opened upstream=%s failures=%d cooldown=%s err=%v", b.name, failures, b.cooldown, err)
		b.sink.Raise(b.alertKey(), fmt.Sprintf("upstream %s: %d consecutive failures, circuit open for %s", b.name, failures, b.cooldown))
	}
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) alertKey() string {
	return "circuit:" + b.name
}

// Do runs fn through the breaker. When the circuit is open it returns
// (false, nil) without invoking fn; otherwise it records the outcome and
// returns (true, err).
func (b *Breaker) Do(fn func() error) (attempted bool, err error) {
	if !b.Allow() {
		log.Printf("[Guard] skipped upstream=%s reason=circuit_open", b.name)
		return false, nil
	}
	err = fn()
	if err != nil {
		b.RecordFailure(err)
	} else {
		b.RecordSuccess()
	}
	return true, err
}

// Registry hands out one breaker per upstream dependency. The guard is
// applied per upstream, never globally.
type Registry struct {
	sink alerts.Sink
	now  func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

func NewRegistry(sink alerts.Sink) *Registry {
	return &Registry{sink: sink, now: time.Now, breakers: make(map[string]*Breaker)}
}

// For returns the breaker for the named upstream, creating it on first use.
func (r *Registry) For(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewWithClock(name, r.sink, r.now)
		r.breakers[name] = b
	}
	return b
}
