// Package alerts is the operator-notification boundary. Raising or resolving
// an alert is fire-and-forget: a failing sink must never fail the caller.
package alerts

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Sink receives operator-visible alerts keyed by a stable identifier so a
// later resolve can be matched to the raise.
type Sink interface {
	Raise(key, message string)
	Resolve(key string)
}

// LogSink writes alerts to the process log. It is the fallback when no
// Sentry DSN is configured and the default collaborator in tests.
type LogSink struct{}

func (LogSink) Raise(key, message string) {
	log.Printf("[ALERT] raised key=%s message=%s", key, message)
}

func (LogSink) Resolve(key string) {
	log.Printf("[ALERT] resolved key=%s", key)
}

// SentrySink forwards raised alerts to Sentry as error-level events and logs
// resolves locally (Sentry has no first-class resolve API for events).
type SentrySink struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewSentrySink initializes the Sentry client from SENTRY_DSN. It returns
// (nil, nil) when the DSN is empty so callers can fall back to LogSink.
func NewSentrySink() (*SentrySink, error) {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		log.Println("[ALERT] SENTRY_DSN not set, alerting falls back to log only")
		return nil, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      os.Getenv("SENTRY_ENVIRONMENT"),
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Tags == nil {
				event.Tags = make(map[string]string)
			}
			event.Tags["service"] = "social-scheduler"
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	log.Printf("[ALERT] Sentry alerting enabled")
	return &SentrySink{active: make(map[string]bool)}, nil
}

func (s *SentrySink) Raise(key, message string) {
	s.mu.Lock()
	already := s.active[key]
	s.active[key] = true
	s.mu.Unlock()
	if already {
		// Don't re-page for an alert that is still firing.
		return
	}

	log.Printf("[ALERT] raised key=%s message=%s", key, message)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("alert_key", key)
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureMessage(message)
	})
	sentry.Flush(2 * time.Second)
}

func (s *SentrySink) Resolve(key string) {
	s.mu.Lock()
	wasActive := s.active[key]
	delete(s.active, key)
	s.mu.Unlock()
	if !wasActive {
		return
	}

	log.Printf("[ALERT] resolved key=%s", key)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("alert_key", key)
		scope.SetLevel(sentry.LevelInfo)
		sentry.CaptureMessage(fmt.Sprintf("resolved: %s", key))
	})
}
