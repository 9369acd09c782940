package api

import (
	"github.com/trailguard/trailguard/internal/alert"
	"github.com/trailguard/trailguard/internal/ingest"
)

// ProcessResponse is the payload for POST /process-alerts.
type ProcessResponse struct {
	Status       string               `json:"status"`
	AnomalyCount int                  `json:"anomaly_count"`
	Results      []ingest.AlertResult `json:"results"`
}

// ListResponse is the payload for GET /api/v1/alerts.
type ListResponse struct {
	Alerts []alert.Alert `json:"alerts"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	AlertsStored int64  `json:"alerts_stored"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
