package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/trailguard/trailguard/internal/alert"
)

// Entry is one audit line: an accepted ingestion batch plus receipt time.
type Entry struct {
	ReceivedAt   time.Time     `json:"received_at"`
	Status       string        `json:"status"`
	AnomalyCount int           `json:"anomaly_count"`
	Alerts       []alert.Alert `json:"alerts"`
}

// Log writes entries to an append-only file. Safe for concurrent use; writes
// are serialized so lines never interleave.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens (or creates) the audit log at path in append-only mode.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %q: %w", path, err)
	}
	return &Log{f: f, path: path}, nil
}

// Append writes e as one JSON line. Failures here do not affect database
// persistence; the caller decides whether to log and continue.
func (l *Log) Append(e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(b); err != nil {
		return fmt.Errorf("audit: append to %q: %w", l.path, err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
