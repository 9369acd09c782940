package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trailguard/trailguard/internal/alert"
	"github.com/trailguard/trailguard/internal/audit"
	"github.com/trailguard/trailguard/internal/config"
	"github.com/trailguard/trailguard/internal/notify"
	"github.com/trailguard/trailguard/internal/policy"
	"github.com/trailguard/trailguard/internal/store"
)

type fixture struct {
	svc          *Service
	store        *store.Store
	auditPath    string
	webhookCalls *atomic.Int32
	webhookGate  chan struct{} // closed by the test to let the webhook respond
	webhookBody  chan []byte
	smsCalls     *atomic.Int32
}

// newFixture wires a full ingestion pipeline: SQLite store, audit log, and a
// dispatch pool whose webhook and SMS channels point at httptest backends.
// Email is left unconfigured (skip path); channel internals are covered in
// the notify package.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		webhookCalls: &atomic.Int32{},
		webhookGate:  make(chan struct{}),
		webhookBody:  make(chan []byte, 8),
		smsCalls:     &atomic.Int32{},
	}

	whSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-f.webhookGate
		f.webhookCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.webhookBody <- body
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(whSrv.Close)

	smsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.smsCalls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(smsSrv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "evidence.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	f.store = st

	f.auditPath = filepath.Join(t.TempDir(), "audit.log")
	auditLog, err := audit.Open(f.auditPath)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() { auditLog.Close() })

	t.Setenv("TG_TEST_SID", "ACtest")
	t.Setenv("TG_TEST_TOKEN", "token")
	dispatcher := notify.NewDispatcher(
		policy.New(nil),
		notify.NewWebhook(whSrv.URL),
		notify.NewEmail(config.EmailConfig{}, nil),
		notify.NewSMS(config.SMSConfig{
			AccountSIDEnv: "TG_TEST_SID",
			AuthTokenEnv:  "TG_TEST_TOKEN",
			From:          "+10000000000",
			APIBase:       smsSrv.URL,
		}, []string{"+911234567890"}),
		nil,
	)

	pool := notify.NewPool(dispatcher, 2, 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go pool.Run(ctx)

	f.svc = New(st, auditLog, pool)
	return f
}

func batch() Batch {
	return Batch{
		Status:       "anomalies_detected",
		AnomalyCount: 2,
		Alerts: []alert.Input{
			{
				AlertID:         "crit-1",
				TouristID:       "t-1",
				AnomalyType:     "geofence_exit",
				Level:           "critical",
				ConfidenceScore: 0.95,
				Location:        alert.Location{Lat: 27.17, Lng: 78.04},
				Timestamp:       "2025-05-30T08:15:00Z",
			},
			{
				AlertID:         "info-1",
				TouristID:       "t-2",
				AnomalyType:     "minor_drift",
				Level:           "info",
				ConfidenceScore: 0.4,
				Timestamp:       "2025-05-30T08:16:00Z",
			},
		},
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestProcessBatch_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The webhook backend will not respond until the gate opens, so a
	// returned ProcessBatch proves ingestion does not wait on dispatch.
	results, err := f.svc.ProcessBatch(ctx, batch())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	close(f.webhookGate)

	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if !results[0].Inserted || !results[1].Inserted {
		t.Errorf("results: got %+v, want both inserted", results)
	}
	if results[0].Hash == results[1].Hash {
		t.Error("distinct alerts produced identical hashes")
	}

	// Both alerts durable before dispatch completion.
	for _, id := range []string{"crit-1", "info-1"} {
		if _, err := f.store.GetByAlertID(ctx, id); err != nil {
			t.Errorf("GetByAlertID(%s): %v", id, err)
		}
	}

	// The CRITICAL alert reaches webhook and SMS; the INFO alert reaches
	// neither.
	waitFor(t, func() bool { return f.webhookCalls.Load() == 1 }, "webhook never called")
	waitFor(t, func() bool { return f.smsCalls.Load() == 1 }, "sms never called")

	var env struct {
		Alerts []alert.Alert `json:"alerts"`
	}
	if err := json.Unmarshal(<-f.webhookBody, &env); err != nil {
		t.Fatalf("webhook body: %v", err)
	}
	if len(env.Alerts) != 1 || env.Alerts[0].AlertID != "crit-1" {
		t.Errorf("webhook envelope: got %+v, want only crit-1", env.Alerts)
	}

	// Settle, then confirm the INFO alert triggered no further deliveries.
	time.Sleep(100 * time.Millisecond)
	if n := f.webhookCalls.Load(); n != 1 {
		t.Errorf("webhook calls: got %d, want 1", n)
	}
	if n := f.smsCalls.Load(); n != 1 {
		t.Errorf("sms calls: got %d, want 1", n)
	}
}

func TestProcessBatch_ReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	close(f.webhookGate)
	ctx := context.Background()

	if _, err := f.svc.ProcessBatch(ctx, batch()); err != nil {
		t.Fatalf("first ProcessBatch: %v", err)
	}
	results, err := f.svc.ProcessBatch(ctx, batch())
	if err != nil {
		t.Fatalf("replay ProcessBatch: %v", err)
	}

	for _, r := range results {
		if r.Inserted {
			t.Errorf("replay of %s: got inserted=true, want false", r.AlertID)
		}
	}
	if n, _ := f.store.Count(ctx); n != 2 {
		t.Errorf("stored count after replay: got %d, want 2", n)
	}
}

func TestProcessBatch_AuditLine(t *testing.T) {
	f := newFixture(t)
	close(f.webhookGate)

	if _, err := f.svc.ProcessBatch(context.Background(), batch()); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	data, err := os.ReadFile(f.auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	var entry audit.Entry
	if err := json.Unmarshal(bytesBeforeNewline(data), &entry); err != nil {
		t.Fatalf("audit line is not valid JSON: %v", err)
	}
	if entry.AnomalyCount != 2 || len(entry.Alerts) != 2 {
		t.Errorf("audit entry: got %+v", entry)
	}
	if entry.Alerts[0].Hash == "" {
		t.Error("audit entry alerts missing hashes")
	}
}

func TestProcessBatch_StorageFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	close(f.webhookGate)

	f.store.Close() // simulate storage unavailability

	if _, err := f.svc.ProcessBatch(context.Background(), batch()); err == nil {
		t.Fatal("ProcessBatch with closed store: want error")
	}
}

func bytesBeforeNewline(b []byte) []byte {
	for i, c := range b {
		if c == '\n' {
			return b[:i]
		}
	}
	return b
}
