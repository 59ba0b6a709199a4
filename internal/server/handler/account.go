package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/colosseo/arenabook/internal/domain"
)

// LedgerService defines what the account handler requires from the ledger.
type LedgerService interface {
	CreateAccount(ctx context.Context, id string) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
}

// AccountHandler serves account endpoints.
type AccountHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(ledger LedgerService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		ledger: ledger,
		logger: logHandler(logger, "account"),
	}
}

// createAccountRequest is the JSON body for account registration.
type createAccountRequest struct {
	AccountID string `json:"account_id"`
}

// CreateAccount registers a new account and grants its initial balance.
// POST /api/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.AccountID == "" {
		writeError(w, http.StatusBadRequest, "missing account_id")
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), body.AccountID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "account already exists")
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrEngineHalted):
			writeError(w, http.StatusServiceUnavailable, "wagering is halted")
		default:
			h.logger.ErrorContext(r.Context(), "handler: create account failed",
				slog.String("account_id", body.AccountID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// GetAccount returns an account with its balance and influence.
// GET /api/accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account id")
		return
	}

	account, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get account failed",
			slog.String("account_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get account")
		return
	}

	writeJSON(w, http.StatusOK, account)
}
