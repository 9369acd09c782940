// Package ingest orchestrates alert batch intake: normalization, idempotent
// persistence to the evidence store (synchronous, in batch order), audit
// logging, and handoff to the background dispatch pool.
package ingest
