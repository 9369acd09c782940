package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trailguard/trailguard/internal/alert"
	"github.com/trailguard/trailguard/internal/audit"
	"github.com/trailguard/trailguard/internal/metrics"
	"github.com/trailguard/trailguard/internal/notify"
	"github.com/trailguard/trailguard/internal/store"
)

// Batch is the inbound batch object from the detection layer.
type Batch struct {
	Status       string        `json:"status"`
	AnomalyCount int           `json:"anomaly_count"`
	Alerts       []alert.Input `json:"alerts"`
}

// AlertResult is the per-alert persistence outcome returned to the caller.
type AlertResult struct {
	AlertID  string `json:"alert_id"`
	Hash     string `json:"hash"`
	Inserted bool   `json:"inserted"`
}

// Service ties the evidence store, the audit log, and the dispatch pool
// together behind one batch operation.
type Service struct {
	store *store.Store
	audit *audit.Log
	pool  *notify.Pool
	now   func() time.Time // injectable for deterministic tests
}

// New creates a Service. audit may be nil to disable the side-channel.
func New(st *store.Store, auditLog *audit.Log, pool *notify.Pool) *Service {
	return &Service{
		store: st,
		audit: auditLog,
		pool:  pool,
		now:   time.Now,
	}
}

// ProcessBatch persists every alert in b, in order, then queues each for
// background dispatch and appends the batch to the audit log.
//
// Persistence is synchronous and fatal-on-error: the first storage failure
// aborts the batch and propagates, so the caller never acknowledges an alert
// that is not durably recorded. Dispatch and audit are best-effort and never
// affect the returned error.
func (s *Service) ProcessBatch(ctx context.Context, b Batch) ([]AlertResult, error) {
	results := make([]AlertResult, 0, len(b.Alerts))
	stored := make([]alert.Alert, 0, len(b.Alerts))

	for _, in := range b.Alerts {
		a := alert.Normalize(in, s.now())

		rec, inserted, err := s.store.Insert(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("ingest: persist alert %q: %w", a.AlertID, err)
		}

		if inserted {
			metrics.IngestedTotal.WithLabelValues("inserted").Inc()
		} else {
			metrics.IngestedTotal.WithLabelValues("duplicate").Inc()
			slog.Info("duplicate alert ignored", "alert_id", rec.AlertID)
		}

		results = append(results, AlertResult{
			AlertID:  rec.AlertID,
			Hash:     rec.Hash,
			Inserted: inserted,
		})
		stored = append(stored, rec)
	}

	if s.audit != nil {
		entry := audit.Entry{
			ReceivedAt:   s.now().UTC(),
			Status:       b.Status,
			AnomalyCount: b.AnomalyCount,
			Alerts:       stored,
		}
		if err := s.audit.Append(entry); err != nil {
			metrics.AuditFailures.Inc()
			slog.Error("audit append failed", "err", err)
		}
	}

	// Fire-and-forget: the ingestion response never waits on notification
	// channels.
	for _, rec := range stored {
		s.pool.Enqueue(rec)
	}

	return results, nil
}
