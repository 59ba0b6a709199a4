package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/colosseo/arenabook/internal/domain"
)

// SettlementService defines what the admin handler requires from the
// settlement engine.
type SettlementService interface {
	VoidPool(ctx context.Context, poolID, reason string) error
}

// AdminLedger exposes the ledger operations reserved for operators.
type AdminLedger interface {
	Reconcile(ctx context.Context) (domain.Reconciliation, error)
	Resume()
	Halted() bool
	HaltReason() string
}

// AdminHandler serves operator endpoints. These sit behind the API key; the
// spectator endpoints do not.
type AdminHandler struct {
	settle SettlementService
	ledger AdminLedger
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(settle SettlementService, ledger AdminLedger, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		settle: settle,
		ledger: ledger,
		logger: logHandler(logger, "admin"),
	}
}

// voidPoolRequest carries the operator's reason for voiding.
type voidPoolRequest struct {
	Reason string `json:"reason"`
}

// VoidPool cancels a pool and refunds every active bet at its original stake.
// POST /api/admin/pools/{id}/void
func (h *AdminHandler) VoidPool(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	var body voidPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Reason == "" {
		writeError(w, http.StatusBadRequest, "missing void reason")
		return
	}

	if err := h.settle.VoidPool(r.Context(), id, body.Reason); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "pool not found")
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusConflict, "pool cannot be voided in its current status")
		default:
			h.logger.ErrorContext(r.Context(), "handler: void pool failed",
				slog.String("pool_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to void pool")
		}
		return
	}

	h.logger.InfoContext(r.Context(), "handler: pool voided by operator",
		slog.String("pool_id", id),
		slog.String("reason", body.Reason),
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"pool_id": id,
		"status":  string(domain.PoolStatusVoid),
	})
}

// Reconciliation runs a full conservation check over every account and
// returns the result. A non-zero delta halts the engine as a side effect.
// GET /api/admin/reconciliation
func (h *AdminHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.Reconcile(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrLedgerInvariant) {
			// Report the breach rather than masking it behind a 500.
			writeJSON(w, http.StatusConflict, rec)
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: reconciliation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Resume clears a halt after an operator has repaired the underlying breach.
// POST /api/admin/resume
func (h *AdminHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if !h.ledger.Halted() {
		writeError(w, http.StatusConflict, "engine is not halted")
		return
	}

	reason := h.ledger.HaltReason()
	h.ledger.Resume()
	h.logger.InfoContext(r.Context(), "handler: halt cleared by operator",
		slog.String("previous_reason", reason),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}
