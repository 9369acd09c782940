// Package ws implements the dashboard feed: a WebSocket hub that broadcasts
// alerts selected for the dashboard action to all connected clients.
package ws
