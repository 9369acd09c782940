// Package notify implements the notification channels (webhook, email, SMS)
// and the dispatch coordinator that fans an alert out to the channels its
// severity policy selects. Channels fail independently: a failure, retry
// exhaustion, or missing configuration on one channel never blocks or fails
// the others, and nothing in this package ever raises to the ingestion path.
package notify
