package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// EngineState reports whether the wagering engine has been halted.
type EngineState interface {
	Halted() bool
	HaltReason() string
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	engine EngineState
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(engine EngineState, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{engine: engine, logger: logHandler(logger, "health")}
}

// HealthCheck responds with the server status and whether wagering is
// currently halted by a ledger invariant breach.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.engine != nil && h.engine.Halted() {
		resp["status"] = "halted"
		resp["halt_reason"] = h.engine.HaltReason()
	}

	writeJSON(w, http.StatusOK, resp)
}
