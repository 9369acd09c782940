package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IngestedTotal counts persisted alerts by result: "inserted" for new
	// records, "duplicate" for idempotent replays.
	IngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trailguard_alerts_ingested_total",
		Help: "Alerts processed by the evidence store, by persistence result.",
	}, []string{"result"})

	// DispatchTotal counts per-channel delivery outcomes: "delivered",
	// "failed", or "skipped" (channel not configured).
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trailguard_dispatch_total",
		Help: "Notification channel invocations, by channel and outcome.",
	}, []string{"channel", "outcome"})

	// DispatchDropped counts alerts dropped because the dispatch queue was full.
	DispatchDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailguard_dispatch_dropped_total",
		Help: "Dispatch jobs dropped due to a full work queue.",
	})

	// AuditFailures counts failed audit log appends.
	AuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailguard_audit_failures_total",
		Help: "Audit log append failures.",
	})
)

// Handler returns the HTTP handler serving the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
