package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/colosseo/arenabook/internal/betting"
	"github.com/colosseo/arenabook/internal/domain"
)

// BettingService defines what the bet handler requires from the betting
// service.
type BettingService interface {
	Place(ctx context.Context, req betting.PlaceRequest) (domain.Bet, error)
	Get(ctx context.Context, id string) (domain.Bet, error)
	ListByAccount(ctx context.Context, accountID string, opts domain.ListOpts) ([]domain.Bet, error)
}

// BetHandler serves bet placement and lookup endpoints.
type BetHandler struct {
	betting BettingService
	logger  *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(betting BettingService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		betting: betting,
		logger:  logHandler(logger, "bet"),
	}
}

// placeBetRequest is the JSON body for bet placement. MaxOdds is optional; a
// bet with it set is rejected when the live odds exceed it at acceptance.
type placeBetRequest struct {
	AccountID string `json:"account_id"`
	PoolID    string `json:"pool_id"`
	Side      string `json:"side"`
	Amount    int64  `json:"amount"`
	MaxOdds   string `json:"max_odds,omitempty"`
}

// PlaceBet accepts a wager.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var body placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := betting.PlaceRequest{
		AccountID: body.AccountID,
		PoolID:    body.PoolID,
		Side:      domain.PoolSide(body.Side),
		Amount:    body.Amount,
	}
	if body.MaxOdds != "" {
		max, err := decimal.NewFromString(body.MaxOdds)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_odds")
			return
		}
		req.MaxOdds = &max
	}

	bet, err := h.betting.Place(r.Context(), req)
	if err != nil {
		h.writePlaceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, bet)
}

// writePlaceError maps betting errors to HTTP statuses.
func (h *BetHandler) writePlaceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "pool not found")
	case errors.Is(err, domain.ErrPoolClosed):
		writeError(w, http.StatusConflict, "pool is not accepting bets")
	case errors.Is(err, domain.ErrOddsSlippage):
		writeError(w, http.StatusConflict, "odds moved beyond max_odds")
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient balance")
	case errors.Is(err, domain.ErrEngineHalted):
		writeError(w, http.StatusServiceUnavailable, "wagering is halted")
	default:
		h.logger.ErrorContext(r.Context(), "handler: place bet failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to place bet")
	}
}

// GetBet returns a single bet by its ID.
// GET /api/bets/{id}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	bet, err := h.betting.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bet not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get bet failed",
			slog.String("bet_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get bet")
		return
	}

	writeJSON(w, http.StatusOK, bet)
}

// ListAccountBets returns an account's bets with pagination.
// GET /api/accounts/{id}/bets?limit=50&offset=0
func (h *BetHandler) ListAccountBets(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account id")
		return
	}

	opts := parseListOpts(r)
	bets, err := h.betting.ListByAccount(r.Context(), id, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list account bets failed",
			slog.String("account_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"bets":       bets,
		"limit":      opts.Limit,
		"offset":     opts.Offset,
	})
}
