package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/trailguard/trailguard/internal/alert"
	"github.com/trailguard/trailguard/internal/metrics"
)

// Pool runs alert dispatches on a fixed set of background workers fed by a
// bounded queue. Enqueue is non-blocking so the ingestion path is never held
// waiting on third-party network calls; when the queue is full the job is
// dropped with a warning, acceptable under the at-least-once, best-effort
// delivery policy.
type Pool struct {
	dispatcher *Dispatcher
	jobs       chan alert.Alert
	workers    int
}

// NewPool creates a Pool with the given worker count and queue depth.
func NewPool(d *Dispatcher, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pool{
		dispatcher: d,
		jobs:       make(chan alert.Alert, queueSize),
		workers:    workers,
	}
}

// Enqueue schedules a for background dispatch. It never blocks; the return
// reports whether the job was accepted.
func (p *Pool) Enqueue(a alert.Alert) bool {
	select {
	case p.jobs <- a:
		return true
	default:
		slog.Warn("dispatch queue full; dropping alert", "alert_id", a.AlertID)
		metrics.DispatchDropped.Inc()
		return false
	}
}

// Run starts the workers and blocks until ctx is cancelled and all workers
// have returned. Jobs still queued at shutdown are abandoned and counted in
// the final log line; a dispatch already in flight sees its context
// cancelled and gives up its remaining retries.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	wg.Wait()

	if n := len(p.jobs); n > 0 {
		slog.Warn("dispatch pool stopped with queued jobs abandoned", "count", n)
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-p.jobs:
			p.dispatcher.Dispatch(ctx, a)
		}
	}
}
