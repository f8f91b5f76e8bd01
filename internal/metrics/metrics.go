// Package metrics exposes operational counters for the scheduling engine.
// VictoriaMetrics/metrics takes labels inline in the metric name, so metrics
// are created dynamically per label combination.
package metrics

import (
	"net/http"
	"os"
	"sync"

	"github.com/VictoriaMetrics/metrics"
)

var (
	once    sync.Once
	enabled bool
)

// IsEnabled reports whether metric collection is on (METRICS_ENABLED != "false").
func IsEnabled() bool {
	once.Do(func() {
		enabled = os.Getenv("METRICS_ENABLED") != "false"
	})
	return enabled
}

// Handler serves the Prometheus-format scrape endpoint.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}

// RecordPostSent records a successful platform dispatch.
func RecordPostSent(platform string) {
	if !IsEnabled() {
		return
	}
	metrics.GetOrCreateCounter(`scheduler_posts_sent_total{platform="` + platform + `"}`).Inc()
}

// RecordPostFailed records a dispatch that left the post FAILED.
func RecordPostFailed(platform string) {
	if !IsEnabled() {
		return
	}
	metrics.GetOrCreateCounter(`scheduler_posts_failed_total{platform="` + platform + `"}`).Inc()
}

// RecordBreakerOpen records a circuit-open event for an upstream.
func RecordBreakerOpen(upstream string) {
	if !IsEnabled() {
		return
	}
	metrics.GetOrCreateCounter(`scheduler_circuit_open_total{upstream="` + upstream + `"}`).Inc()
}

// RecordProfileComputed records one posting-profile computation, labeled by
// how many live signal sources contributed.
func RecordProfileComputed(platform string, dataPoints string) {
	if !IsEnabled() {
		return
	}
	metrics.GetOrCreateCounter(`scheduler_profiles_computed_total{platform="` + platform + `",data_points="` + dataPoints + `"}`).Inc()
}

// RecordSourceAbsent records a signal source that contributed nothing.
func RecordSourceAbsent(source string) {
	if !IsEnabled() {
		return
	}
	metrics.GetOrCreateCounter(`scheduler_signal_absent_total{source="` + source + `"}`).Inc()
}
