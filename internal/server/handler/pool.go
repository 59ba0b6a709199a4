package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/colosseo/arenabook/internal/domain"
)

// MarketService defines the methods the pool handler requires from the market
// manager. It is declared locally so the handler package does not depend on
// the concrete implementation.
type MarketService interface {
	Get(ctx context.Context, id string) (domain.Pool, error)
	Summary(ctx context.Context, poolID string) (domain.PoolSummary, error)
	CurrentOdds(ctx context.Context, poolID string) (domain.OddsPair, error)
}

// PoolHandler serves pool-related HTTP endpoints.
type PoolHandler struct {
	market MarketService
	pools  domain.PoolStore
	bets   domain.BetStore
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler with the given dependencies.
func NewPoolHandler(market MarketService, pools domain.PoolStore, bets domain.BetStore, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		market: market,
		pools:  pools,
		bets:   bets,
		logger: logHandler(logger, "pool"),
	}
}

// ListPools returns recent pools, optionally filtered by status.
// GET /api/pools?status=active&limit=50
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	var (
		pools []domain.Pool
		err   error
	)

	if status := r.URL.Query().Get("status"); status != "" {
		pools, err = h.pools.ListByStatus(r.Context(), domain.PoolStatus(status))
	} else {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		pools, err = h.pools.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pools failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pools")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pools": pools,
		"count": len(pools),
	})
}

// GetPool returns a single pool's live summary, including current odds.
// GET /api/pools/{id}
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	summary, err := h.market.Summary(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pool not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get pool failed",
			slog.String("pool_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get pool")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetOdds returns just the current odds pair for a pool. Betting clients poll
// this between summary refreshes.
// GET /api/pools/{id}/odds
func (h *PoolHandler) GetOdds(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	odds, err := h.market.CurrentOdds(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pool not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get odds failed",
			slog.String("pool_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get odds")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pool_id": id,
		"side_a":  odds.SideA,
		"side_b":  odds.SideB,
	})
}

// ListPoolBets returns all bets placed in a pool, in placement order.
// GET /api/pools/{id}/bets
func (h *PoolHandler) ListPoolBets(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	if _, err := h.market.Get(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pool not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get pool failed",
			slog.String("pool_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get pool")
		return
	}

	bets, err := h.bets.ListByPool(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pool bets failed",
			slog.String("pool_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pool_id": id,
		"bets":    bets,
		"count":   len(bets),
	})
}
