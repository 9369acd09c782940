// Package metrics exposes Prometheus counters for ingestion and dispatch
// outcomes, served on /metrics.
package metrics
