// Package store implements the durable evidence log: idempotent,
// hash-verified persistence of alerts in SQLite, keyed by alert_id.
// It is the system's source of truth for accepted alerts.
package store
