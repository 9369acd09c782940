// Package api implements the HTTP transport: the batch ingestion endpoint,
// the alert query endpoints, health, and the API key middleware. Handlers
// are thin: decode, delegate, encode.
package api
