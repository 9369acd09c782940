package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/trailguard/trailguard/internal/alert"
)

func openTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func entry(status string, n int) Entry {
	return Entry{
		ReceivedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:       status,
		AnomalyCount: n,
		Alerts:       []alert.Alert{{AlertID: "a-1", Level: alert.LevelInfo}},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestAppend_OneJSONLinePerEntry(t *testing.T) {
	l, path := openTestLog(t)

	if err := l.Append(entry("ok", 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(entry("ok", 2)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}

	var got Entry
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if got.AnomalyCount != 2 {
		t.Errorf("anomaly_count: got %d, want 2", got.AnomalyCount)
	}
	if len(got.Alerts) != 1 || got.Alerts[0].AlertID != "a-1" {
		t.Errorf("alerts: got %+v", got.Alerts)
	}
}

func TestAppend_IsAppendOnly(t *testing.T) {
	l, path := openTestLog(t)
	l.Append(entry("ok", 1)) //nolint:errcheck
	l.Close()

	// Reopening must preserve existing lines.
	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	if err := l2.Append(entry("ok", 2)); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}

	if lines := readLines(t, path); len(lines) != 2 {
		t.Errorf("lines after reopen: got %d, want 2", len(lines))
	}
}

func TestAppend_ConcurrentWritesDoNotInterleave(t *testing.T) {
	l, path := openTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(entry("ok", 1)) //nolint:errcheck
		}()
	}
	wg.Wait()

	lines := readLines(t, path)
	if len(lines) != 20 {
		t.Fatalf("lines: got %d, want 20", len(lines))
	}
	for i, line := range lines {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Errorf("line %d corrupt: %v", i, err)
		}
	}
}
