package alert

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of an alert. Levels are normalized to uppercase on
// ingestion; an unrecognized level is preserved on the record but maps to
// the least-privileged action set at dispatch time.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// NormalizeLevel trims and uppercases a raw level string.
func NormalizeLevel(s string) Level {
	return Level(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether l is one of the three recognized severity levels.
func (l Level) Known() bool {
	switch l {
	case LevelInfo, LevelWarning, LevelCritical:
		return true
	}
	return false
}

// Location is a latitude/longitude pair. The wire keys are "lat"/"lng".
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert is a single anomaly-detection event. It is immutable once persisted;
// Hash is derived at persistence time and never supplied by the caller.
type Alert struct {
	AlertID         string         `json:"alert_id"`
	TouristID       string         `json:"tourist_id"`
	AnomalyType     string         `json:"anomaly_type"`
	Level           Level          `json:"alert_level"`
	ConfidenceScore float64        `json:"confidence_score"`
	Location        Location       `json:"location"`
	Timestamp       time.Time      `json:"timestamp"`
	ModelVersion    string         `json:"model_version,omitempty"`
	RawEvidence     map[string]any `json:"raw_evidence,omitempty"`
	Hash            string         `json:"hash,omitempty"`
	CreatedAt       time.Time      `json:"created_at,omitempty"`
}

// Input is the wire form of an alert as received from the ingestion boundary.
// Timestamp is accepted as an ISO-8601 string and parsed during normalization.
type Input struct {
	AlertID         string         `json:"alert_id"`
	TouristID       string         `json:"tourist_id"`
	AnomalyType     string         `json:"anomaly_type"`
	Level           string         `json:"alert_level"`
	ConfidenceScore float64        `json:"confidence_score"`
	Location        Location       `json:"location"`
	Timestamp       string         `json:"timestamp"`
	ModelVersion    string         `json:"model_version"`
	RawEvidence     map[string]any `json:"raw_evidence"`
}

// timestampLayouts are tried in order when parsing an incoming timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp and returns it in UTC.
// An empty or unparseable value falls back to now, a lossy but non-fatal
// substitution; the second return reports whether the input parsed.
func ParseTimestamp(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC(), false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return now.UTC(), false
}

// Normalize converts a wire Input into a canonical Alert: a missing alert_id
// is replaced with a generated UUID, the level is uppercased, the timestamp
// is parsed (falling back to now), and missing optional fields are defaulted.
// The Hash field is left empty; it is computed at persistence time.
func Normalize(in Input, now time.Time) Alert {
	id := strings.TrimSpace(in.AlertID)
	if id == "" {
		id = uuid.NewString()
	}

	ts, _ := ParseTimestamp(in.Timestamp, now)

	evidence := in.RawEvidence
	if evidence == nil {
		evidence = map[string]any{}
	}

	return Alert{
		AlertID:         id,
		TouristID:       in.TouristID,
		AnomalyType:     in.AnomalyType,
		Level:           NormalizeLevel(in.Level),
		ConfidenceScore: in.ConfidenceScore,
		Location:        in.Location,
		Timestamp:       ts,
		ModelVersion:    in.ModelVersion,
		RawEvidence:     evidence,
	}
}
