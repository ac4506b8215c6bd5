package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// StatsSource reports working-set size and persistence drift for health output.
type StatsSource interface {
	Stats() (contracts int, persistFailures int64)
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	stats  StatsSource
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided stats source.
func NewHealthHandler(stats StatsSource, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{stats: stats, logger: logger}
}

// HealthCheck responds with liveness plus the in-memory contract count and
// the number of failed durable-store writes since startup, so operators can
// detect drift between memory and store.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	contracts, persistFailures := h.stats.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"contracts":        contracts,
		"persist_failures": persistFailures,
	})
}
