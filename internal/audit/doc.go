// Package audit appends accepted ingestion batches to a local append-only
// log file, one canonical JSON line per batch: a secondary, lower-trust
// durability mechanism for forensic replay, independent of the database.
package audit
