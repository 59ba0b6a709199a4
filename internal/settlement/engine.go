// Package settlement consumes match outcomes and closed pools, computes
// payouts, and instructs the ledger to credit winners and the house. It is
// the sole writer of pool resolution state, and each pool is settled at
// most once.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/market"
	"github.com/colosseo/arenabook/internal/notify"
)

// Engine settles pools.
type Engine struct {
	ledger   *ledger.Ledger
	market   *market.Manager
	bets     domain.BetStore
	events   domain.EventStore
	bus      domain.SignalBus
	notifier *notify.Notifier // optional
	logger   *slog.Logger
}

// NewEngine creates a settlement engine. notifier may be nil.
func NewEngine(
	led *ledger.Ledger,
	mkt *market.Manager,
	bets domain.BetStore,
	events domain.EventStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		ledger:   led,
		market:   mkt,
		bets:     bets,
		events:   events,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "settlement")),
	}
}

// ResolvePool settles a closed pool against a match outcome. An outcome the
// pool's bet type cannot resolve (a draw on a two-sided type) voids the
// pool and refunds stakes verbatim. Winning bets receive stake multiplied
// by their frozen odds; the remainder of the pool value, which is where the
// embedded house edge materializes, goes back to the house.
//
// Before any token moves, the engine verifies that the total payout does
// not exceed the pool's value. A violation halts the engine and leaves the
// pool frozen in the resolving state for manual reconciliation.
func (e *Engine) ResolvePool(ctx context.Context, poolID string, outcome domain.MatchOutcome) error {
	unlock := e.market.Lock(poolID)
	defer unlock()

	pool, err := e.market.Get(ctx, poolID)
	if err != nil {
		return fmt.Errorf("settlement: pool %s: %w", poolID, err)
	}
	switch pool.Status {
	case domain.PoolStatusClosed:
		// settleable
	case domain.PoolStatusResolved, domain.PoolStatusVoid:
		return fmt.Errorf("settlement: pool %s already settled: %w", poolID, domain.ErrAlreadyExists)
	default:
		return fmt.Errorf("settlement: pool %s status %s not settleable: %w",
			poolID, pool.Status, domain.ErrValidation)
	}

	pool.Status = domain.PoolStatusResolving
	if err := e.market.UpdateResolution(ctx, pool); err != nil {
		return err
	}

	if outcome.Winner == nil && !pool.BetType.AllowsDraw() {
		e.logger.Info("indeterminate outcome, voiding pool",
			slog.String("pool", poolID),
			slog.String("match", outcome.MatchID),
		)
		return e.voidLocked(ctx, pool, "indeterminate outcome")
	}

	return e.payoutLocked(ctx, pool, *outcome.Winner)
}

// VoidPool voids a pool on operator request, refunding every stake. It
// accepts active or closed pools; an active pool is closed first so no bet
// can land mid-void.
func (e *Engine) VoidPool(ctx context.Context, poolID, reason string) error {
	if reason == "" {
		return fmt.Errorf("settlement: void reason required: %w", domain.ErrValidation)
	}

	unlock := e.market.Lock(poolID)
	defer unlock()

	pool, err := e.market.Get(ctx, poolID)
	if err != nil {
		return fmt.Errorf("settlement: pool %s: %w", poolID, err)
	}
	switch pool.Status {
	case domain.PoolStatusActive, domain.PoolStatusClosed:
		// voidable
	default:
		return fmt.Errorf("settlement: pool %s status %s not voidable: %w",
			poolID, pool.Status, domain.ErrAlreadyExists)
	}

	if pool.Status == domain.PoolStatusActive {
		now := time.Now().UTC()
		pool.ClosedAt = &now
	}
	pool.Status = domain.PoolStatusResolving
	if err := e.market.UpdateResolution(ctx, pool); err != nil {
		return err
	}

	e.logger.Warn("pool voided by operator",
		slog.String("pool", poolID),
		slog.String("reason", reason),
	)
	return e.voidLocked(ctx, pool, reason)
}

// voidLocked refunds every active bet its exact original stake, no edge
// taken, returns the house liquidity, and marks the pool void. Caller holds
// the pool lock and has already transitioned the pool to resolving.
func (e *Engine) voidLocked(ctx context.Context, pool domain.Pool, reason string) error {
	bets, err := e.bets.ListByPool(ctx, pool.ID)
	if err != nil {
		return fmt.Errorf("settlement: list bets for pool %s: %w", pool.ID, err)
	}

	now := time.Now().UTC()
	var refunded int64
	for _, bet := range bets {
		if bet.Status != domain.BetStatusActive {
			continue
		}
		if err := e.ledger.Transfer(ctx, domain.EscrowAccountID, bet.AccountID, bet.Amount); err != nil {
			e.freeze(ctx, pool.ID, fmt.Sprintf("void refund of bet %s failed: %v", bet.ID, err))
			return fmt.Errorf("settlement: refund bet %s: %w", bet.ID, domain.ErrLedgerInvariant)
		}
		if err := e.bets.Settle(ctx, bet.ID, domain.BetStatusVoid, bet.Amount, now); err != nil {
			return fmt.Errorf("settlement: settle bet %s: %w", bet.ID, err)
		}
		refunded += bet.Amount
	}

	if pool.HouseLiquidity > 0 {
		if err := e.ledger.Transfer(ctx, domain.EscrowAccountID, domain.HouseAccountID, pool.HouseLiquidity); err != nil {
			e.freeze(ctx, pool.ID, fmt.Sprintf("liquidity return failed: %v", err))
			return fmt.Errorf("settlement: return liquidity: %w", domain.ErrLedgerInvariant)
		}
	}

	pool.Status = domain.PoolStatusVoid
	pool.VoidReason = reason
	pool.ResolvedAt = &now
	if err := e.market.UpdateResolution(ctx, pool); err != nil {
		return err
	}

	e.emit(ctx, pool, map[string]any{
		"result":   "void",
		"reason":   reason,
		"refunded": refunded,
	})
	e.logger.Info("pool voided",
		slog.String("pool", pool.ID),
		slog.String("reason", reason),
		slog.Int64("refunded", refunded),
	)
	return nil
}

// payoutLocked credits winners at their frozen odds and the remainder to
// the house. Caller holds the pool lock; pool is in the resolving state.
func (e *Engine) payoutLocked(ctx context.Context, pool domain.Pool, winner domain.PoolSide) error {
	bets, err := e.bets.ListByPool(ctx, pool.ID)
	if err != nil {
		return fmt.Errorf("settlement: list bets for pool %s: %w", pool.ID, err)
	}

	// Compute every payout before a single token moves so the payout bound
	// can be verified up front.
	type award struct {
		bet    domain.Bet
		payout int64
	}
	var (
		awards      []award
		totalPayout int64
	)
	for _, bet := range bets {
		if bet.Status != domain.BetStatusActive {
			continue
		}
		var payout int64
		if bet.Side == winner {
			payout = domain.PotentialPayout(bet.Amount, bet.Odds)
			totalPayout += payout
		}
		awards = append(awards, award{bet: bet, payout: payout})
	}

	poolValue := pool.TotalValue()
	if totalPayout > poolValue {
		e.freeze(ctx, pool.ID, fmt.Sprintf(
			"payout bound violated: total payout %d exceeds pool value %d", totalPayout, poolValue))
		return fmt.Errorf("settlement: pool %s payout %d > value %d: %w",
			pool.ID, totalPayout, poolValue, domain.ErrLedgerInvariant)
	}

	now := time.Now().UTC()
	for _, a := range awards {
		status := domain.BetStatusLost
		if a.payout > 0 {
			status = domain.BetStatusWon
			if err := e.ledger.Transfer(ctx, domain.EscrowAccountID, a.bet.AccountID, a.payout); err != nil {
				e.freeze(ctx, pool.ID, fmt.Sprintf("winner credit for bet %s failed: %v", a.bet.ID, err))
				return fmt.Errorf("settlement: credit bet %s: %w", a.bet.ID, domain.ErrLedgerInvariant)
			}
		}
		if err := e.bets.Settle(ctx, a.bet.ID, status, a.payout, now); err != nil {
			return fmt.Errorf("settlement: settle bet %s: %w", a.bet.ID, err)
		}
	}

	// The remainder is losing stakes plus unconsumed liquidity plus the
	// edge embedded in the frozen odds. All of it returns to the house.
	if remainder := poolValue - totalPayout; remainder > 0 {
		if err := e.ledger.Transfer(ctx, domain.EscrowAccountID, domain.HouseAccountID, remainder); err != nil {
			e.freeze(ctx, pool.ID, fmt.Sprintf("house remainder transfer failed: %v", err))
			return fmt.Errorf("settlement: house remainder: %w", domain.ErrLedgerInvariant)
		}
	}

	pool.Status = domain.PoolStatusResolved
	pool.WinningSide = &winner
	pool.ResolvedAt = &now
	if err := e.market.UpdateResolution(ctx, pool); err != nil {
		return err
	}

	e.emit(ctx, pool, map[string]any{
		"result":       "resolved",
		"winner":       string(winner),
		"total_payout": totalPayout,
		"house_take":   poolValue - totalPayout,
	})
	e.logger.Info("pool resolved",
		slog.String("pool", pool.ID),
		slog.String("winner", string(winner)),
		slog.Int64("total_payout", totalPayout),
		slog.Int64("house_take", poolValue-totalPayout),
	)
	return nil
}

// freeze halts the engine and alerts operators; the pool stays in the
// resolving state for manual reconciliation rather than over- or
// under-paying.
func (e *Engine) freeze(ctx context.Context, poolID, reason string) {
	e.ledger.Halt(reason)
	e.logger.Error("pool frozen for reconciliation",
		slog.String("pool", poolID),
		slog.String("reason", reason),
	)
	if e.notifier != nil {
		if err := e.notifier.Alert(ctx, "Ledger invariant violation",
			fmt.Sprintf("pool %s frozen: %s", poolID, reason)); err != nil {
			e.logger.Warn("invariant alert failed", slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) emit(ctx context.Context, pool domain.Pool, detail map[string]any) {
	ev := domain.Event{
		Type:      domain.EventPoolResolved,
		PoolID:    pool.ID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	seq, err := e.events.Append(ctx, ev)
	if err != nil {
		e.logger.Error("event log append failed", slog.String("error", err.Error()))
	}
	ev.Seq = seq

	if e.bus != nil {
		if err := e.bus.Publish(ctx, domain.EventChannel(domain.EventPoolResolved), ev.Encode()); err != nil {
			e.logger.Warn("resolution event publish failed", slog.String("error", err.Error()))
		}
	}
}
