// Package alert defines the canonical alert domain model: the Alert record,
// severity levels, ingestion-time normalization, and the tamper-evidence
// fingerprint computed over an alert's logical fields.
package alert
