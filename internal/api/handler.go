package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/trailguard/trailguard/internal/ingest"
	"github.com/trailguard/trailguard/internal/store"
)

// Handler is the HTTP handler for the ingestion and query endpoints.
type Handler struct {
	ingest *ingest.Service
	store  *store.Store
	mux    *http.ServeMux
}

// New creates a Handler wired to the ingest service and evidence store and
// registers all routes.
func New(svc *ingest.Service, st *store.Store) http.Handler {
	h := &Handler{ingest: svc, store: st, mux: http.NewServeMux()}

	h.mux.HandleFunc("/process-alerts", h.processAlerts)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/alerts/", h.getAlert) // subtree match, extracts {id}
	h.mux.HandleFunc("/api/v1/health", h.health)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// processAlerts handles POST /process-alerts, the ingestion boundary.
// Persistence is synchronous; the response reflects durable storage only,
// never notification outcomes.
func (h *Handler) processAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var batch ingest.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid batch payload")
		return
	}

	results, err := h.ingest.ProcessBatch(r.Context(), batch)
	if err != nil {
		slog.Error("batch ingestion failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "failed to persist alerts")
		return
	}

	jsonResp(w, http.StatusOK, ProcessResponse{
		Status:       batch.Status,
		AnomalyCount: batch.AnomalyCount,
		Results:      results,
	})
}

// listAlerts handles GET /api/v1/alerts?limit=&offset=, most recent first.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := queryInt(r, "limit", store.DefaultListLimit)
	offset := queryInt(r, "offset", 0)

	alerts, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list alerts failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	jsonResp(w, http.StatusOK, ListResponse{
		Alerts: alerts,
		Count:  len(alerts),
		Limit:  limit,
		Offset: offset,
	})
}

// getAlert handles GET /api/v1/alerts/{id}.
func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	if id == "" || strings.Contains(id, "/") {
		jsonErr(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	a, err := h.store.GetByAlertID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		slog.Error("get alert failed", "alert_id", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "failed to load alert")
		return
	}

	jsonResp(w, http.StatusOK, a)
}

// health handles GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n, err := h.store.Count(r.Context())
	if err != nil {
		slog.Error("health check store count failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok", AlertsStored: n})
}

// --- helpers ----------------------------------------------------------------

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
