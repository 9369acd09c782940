package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Fingerprint returns the SHA-256 tamper-evidence digest of an alert's
// logical fields as a lowercase hex string.
//
// The digest is computed over a canonical JSON serialization: keys sorted
// lexicographically (encoding/json sorts map keys, recursively for nested
// maps) and the timestamp rendered as a fixed RFC 3339 UTC string. Two
// logically equal alerts therefore always produce the same digest,
// regardless of how their fields were originally ordered. The Hash and
// CreatedAt fields are excluded; the digest is recomputable from content
// alone, which is what makes tampering detectable.
func Fingerprint(a Alert) string {
	evidence := a.RawEvidence
	if evidence == nil {
		evidence = map[string]any{}
	}

	canonical := map[string]any{
		"alert_id":         a.AlertID,
		"tourist_id":       a.TouristID,
		"anomaly_type":     a.AnomalyType,
		"alert_level":      string(a.Level),
		"confidence_score": a.ConfidenceScore,
		"location": map[string]any{
			"lat": a.Location.Lat,
			"lng": a.Location.Lng,
		},
		"timestamp":     a.Timestamp.UTC().Format(time.RFC3339Nano),
		"model_version": a.ModelVersion,
		"raw_evidence":  evidence,
	}

	b, err := json.Marshal(canonical)
	if err != nil {
		// Only non-serializable evidence payloads can fail here, which is a
		// programming error at the boundary, not a recoverable condition.
		panic(fmt.Sprintf("alert: canonical serialization failed: %v", err))
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
