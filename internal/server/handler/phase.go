package handler

import (
	"log/slog"
	"net/http"

	"github.com/colosseo/arenabook/internal/domain"
)

// PhaseReader reports the arena's current phase.
type PhaseReader interface {
	State() domain.PhaseState
}

// PhaseHandler serves the current arena phase.
type PhaseHandler struct {
	phases PhaseReader
	logger *slog.Logger
}

// NewPhaseHandler creates a PhaseHandler.
func NewPhaseHandler(phases PhaseReader, logger *slog.Logger) *PhaseHandler {
	return &PhaseHandler{
		phases: phases,
		logger: logHandler(logger, "phase"),
	}
}

// GetPhase returns the current phase and, when one exists, the active pool.
// GET /api/phase
func (h *PhaseHandler) GetPhase(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.phases.State())
}
