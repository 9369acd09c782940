package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trailguard/trailguard/internal/alert"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 100

// ErrNotFound is returned by GetByAlertID when no record has the given id.
var ErrNotFound = errors.New("alert not found")

const schema = `CREATE TABLE IF NOT EXISTS alerts (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id         TEXT NOT NULL UNIQUE,
	tourist_id       TEXT NOT NULL,
	anomaly_type     TEXT NOT NULL,
	alert_level      TEXT NOT NULL,
	confidence_score REAL NOT NULL,
	latitude         REAL NOT NULL,
	longitude        REAL NOT NULL,
	timestamp        TEXT NOT NULL,
	model_version    TEXT NOT NULL DEFAULT '',
	raw_evidence     TEXT NOT NULL DEFAULT '{}',
	hash             TEXT NOT NULL,
	created_at       TEXT NOT NULL
);`

// Store is the evidence log backed by a single shared SQLite handle.
// database/sql serializes access; the UNIQUE constraint on alert_id makes
// Insert an atomic insert-if-absent, so concurrent inserts of the same id
// can never produce two records.
type Store struct {
	db  *sql.DB
	now func() time.Time // injectable for deterministic tests
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}

	// SQLite allows one writer at a time; a single shared connection avoids
	// SQLITE_BUSY errors under concurrent inserts.
	db.SetMaxOpenConns(1)

	// WAL improves concurrency for the small, frequent writes this store sees.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		slog.Warn("store: could not enable WAL mode", "err", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists a idempotently. The tamper-evidence hash is computed here,
// over the normalized logical fields, immediately before the write.
//
// If a record with the same alert_id already exists, the existing record is
// returned unchanged with inserted=false; replays from upstream retries
// never create duplicates. Otherwise the new record is returned with
// inserted=true. A storage failure is fatal to the caller's ingestion path
// and is propagated, never swallowed.
func (s *Store) Insert(ctx context.Context, a alert.Alert) (alert.Alert, bool, error) {
	a.Hash = alert.Fingerprint(a)
	a.CreatedAt = s.now().UTC()

	evidence, err := json.Marshal(a.RawEvidence)
	if err != nil {
		return alert.Alert{}, false, fmt.Errorf("store: encode raw_evidence for %s: %w", a.AlertID, err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO alerts
		(alert_id, tourist_id, anomaly_type, alert_level, confidence_score,
		 latitude, longitude, timestamp, model_version, raw_evidence, hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(alert_id) DO NOTHING`,
		a.AlertID, a.TouristID, a.AnomalyType, string(a.Level), a.ConfidenceScore,
		a.Location.Lat, a.Location.Lng, a.Timestamp.UTC().Format(time.RFC3339Nano),
		a.ModelVersion, string(evidence), a.Hash, a.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return alert.Alert{}, false, fmt.Errorf("store: insert %s: %w", a.AlertID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return alert.Alert{}, false, fmt.Errorf("store: insert %s: rows affected: %w", a.AlertID, err)
	}
	if n == 0 {
		existing, err := s.GetByAlertID(ctx, a.AlertID)
		if err != nil {
			return alert.Alert{}, false, fmt.Errorf("store: read back existing %s: %w", a.AlertID, err)
		}
		return existing, false, nil
	}

	return a, true, nil
}

// GetByAlertID returns the record with the given alert_id, or ErrNotFound.
func (s *Store) GetByAlertID(ctx context.Context, id string) (alert.Alert, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` FROM alerts WHERE alert_id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return alert.Alert{}, ErrNotFound
	}
	if err != nil {
		return alert.Alert{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return a, nil
}

// List returns stored alerts ordered by creation time, most recent first.
// limit defaults to DefaultListLimit when non-positive; a negative offset is
// treated as zero.
func (s *Store) List(ctx context.Context, limit, offset int) ([]alert.Alert, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		selectCols+` FROM alerts ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := make([]alert.Alert, 0, limit)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

// Count returns the total number of stored alerts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

const selectCols = `SELECT alert_id, tourist_id, anomaly_type, alert_level, confidence_score,
	latitude, longitude, timestamp, model_version, raw_evidence, hash, created_at`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(sc scanner) (alert.Alert, error) {
	var (
		a        alert.Alert
		level    string
		ts       string
		evidence string
		created  string
	)
	err := sc.Scan(&a.AlertID, &a.TouristID, &a.AnomalyType, &level, &a.ConfidenceScore,
		&a.Location.Lat, &a.Location.Lng, &ts, &a.ModelVersion, &evidence, &a.Hash, &created)
	if err != nil {
		return alert.Alert{}, err
	}

	a.Level = alert.Level(level)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		a.Timestamp = t
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		a.CreatedAt = t
	}
	if err := json.Unmarshal([]byte(evidence), &a.RawEvidence); err != nil {
		return alert.Alert{}, fmt.Errorf("decode raw_evidence: %w", err)
	}
	return a, nil
}
