// Package betting validates and records wagers. It is the only writer of
// pool stake totals and the only component that both reads the ledger and
// instructs it to debit.
package betting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/market"
	"github.com/colosseo/arenabook/internal/sentiment"
	"github.com/colosseo/arenabook/internal/viral"
)

// Config holds bet validation bounds.
type Config struct {
	MinBet int64
	MaxBet int64
}

// PlaceRequest is one wager submission.
type PlaceRequest struct {
	AccountID string
	PoolID    string
	Side      domain.PoolSide
	Amount    int64
	// MaxOdds, when set, rejects the bet if the live odds for the chosen
	// side exceed it at acceptance time.
	MaxOdds *decimal.Decimal
}

// Service executes bets.
type Service struct {
	ledger *ledger.Ledger
	market *market.Manager
	sent   *sentiment.Tracker
	viral  *viral.Detector // optional
	bets   domain.BetStore
	events domain.EventStore
	bus    domain.SignalBus
	cfg    Config
	logger *slog.Logger
}

// NewService creates a betting service. viral may be nil.
func NewService(
	led *ledger.Ledger,
	mkt *market.Manager,
	sent *sentiment.Tracker,
	vd *viral.Detector,
	bets domain.BetStore,
	events domain.EventStore,
	bus domain.SignalBus,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		ledger: led,
		market: mkt,
		sent:   sent,
		viral:  vd,
		bets:   bets,
		events: events,
		bus:    bus,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "betting")),
	}
}

// Place validates and records one wager. Preconditions are checked in
// order: pool active, amount in bounds, odds within the caller's max,
// sufficient balance. On success the ledger debit, stake mutation, and bet
// record are applied as one logical unit under the pool's critical section;
// any failure rolls back everything already applied, so no partial state
// survives.
//
// Within one pool, bets are totally ordered by the order in which they
// acquire the critical section; each bet's frozen odds reflect the pool
// state immediately before its own acceptance.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (domain.Bet, error) {
	if s.ledger.Halted() {
		return domain.Bet{}, domain.ErrEngineHalted
	}
	if err := s.validate(req); err != nil {
		return domain.Bet{}, err
	}

	// Resolve the account outside the pool lock; lazy creation must not
	// serialize against other pools' bettors.
	acct, err := s.ledger.GetOrCreate(ctx, req.AccountID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("betting: account %s: %w", req.AccountID, err)
	}

	unlock := s.market.Lock(req.PoolID)
	defer unlock()

	pool, err := s.market.Get(ctx, req.PoolID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("betting: pool %s: %w", req.PoolID, err)
	}
	if pool.Status != domain.PoolStatusActive {
		return domain.Bet{}, fmt.Errorf("betting: pool %s status %s: %w",
			req.PoolID, pool.Status, domain.ErrPoolClosed)
	}

	// Freeze odds from the pool state immediately prior to this bet.
	odds := s.market.OddsFor(pool)
	frozen := market.FreezeOdds(odds.Odds(req.Side))
	if req.MaxOdds != nil && frozen.GreaterThan(*req.MaxOdds) {
		return domain.Bet{}, fmt.Errorf("betting: odds %s exceed max %s: %w",
			frozen, req.MaxOdds, domain.ErrOddsSlippage)
	}

	// Debit into escrow. ErrInsufficientBalance surfaces here with no state
	// change at all.
	if err := s.ledger.Transfer(ctx, req.AccountID, domain.EscrowAccountID, req.Amount); err != nil {
		return domain.Bet{}, fmt.Errorf("betting: stake debit: %w", err)
	}

	pool, err = s.market.ApplyBet(ctx, req.PoolID, req.Side, req.Amount)
	if err != nil {
		s.refund(ctx, req.AccountID, req.Amount)
		return domain.Bet{}, err
	}

	bet := domain.Bet{
		ID:        uuid.New().String(),
		AccountID: req.AccountID,
		PoolID:    req.PoolID,
		Side:      req.Side,
		Amount:    req.Amount,
		Odds:      frozen,
		Potential: domain.PotentialPayout(req.Amount, frozen),
		Status:    domain.BetStatusActive,
		PlacedAt:  time.Now().UTC(),
	}
	if err := s.bets.Create(ctx, bet); err != nil {
		// Fail closed: undo the stake mutation, then the debit.
		if rbErr := s.market.RevertBet(ctx, req.PoolID, req.Side, req.Amount); rbErr != nil {
			s.ledger.Halt(fmt.Sprintf("bet record rollback failed on pool %s: %v", req.PoolID, rbErr))
			return domain.Bet{}, fmt.Errorf("betting: rollback: %w", domain.ErrLedgerInvariant)
		}
		s.refund(ctx, req.AccountID, req.Amount)
		return domain.Bet{}, fmt.Errorf("betting: record bet: %w", err)
	}

	// Post-acceptance side effects. None of these can fail the bet.
	s.sent.Record(pool.ArenaID, req.Side, req.Amount, acct.Influence)
	if err := s.ledger.GrowInfluence(ctx, req.AccountID); err != nil {
		s.logger.Warn("influence update failed",
			slog.String("account", req.AccountID),
			slog.String("error", err.Error()),
		)
	}

	s.emit(ctx, bet, pool)

	if s.viral != nil {
		if _, err := s.viral.Observe(ctx, viral.Input{Bet: bet, Pool: pool, Influence: acct.Influence}); err != nil {
			s.logger.Warn("viral observation failed",
				slog.String("bet", bet.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("bet placed",
		slog.String("bet", bet.ID),
		slog.String("pool", req.PoolID),
		slog.String("account", req.AccountID),
		slog.String("side", string(req.Side)),
		slog.Int64("amount", req.Amount),
		slog.String("odds", frozen.String()),
	)
	return bet, nil
}

// validate checks the request shape: known side and amount within the
// configured bounds.
func (s *Service) validate(req PlaceRequest) error {
	if req.AccountID == "" || req.PoolID == "" {
		return fmt.Errorf("betting: missing account or pool: %w", domain.ErrValidation)
	}
	if !req.Side.Valid() {
		return fmt.Errorf("betting: unknown side %q: %w", req.Side, domain.ErrValidation)
	}
	if req.Amount < s.cfg.MinBet || (s.cfg.MaxBet > 0 && req.Amount > s.cfg.MaxBet) {
		return fmt.Errorf("betting: amount %d outside [%d,%d]: %w",
			req.Amount, s.cfg.MinBet, s.cfg.MaxBet, domain.ErrValidation)
	}
	return nil
}

// refund returns a staked amount from escrow. A refund that fails means
// tokens are stranded in escrow, which is an invariant violation.
func (s *Service) refund(ctx context.Context, accountID string, amount int64) {
	if err := s.ledger.Transfer(ctx, domain.EscrowAccountID, accountID, amount); err != nil {
		s.ledger.Halt(fmt.Sprintf("stake refund to %s failed: %v", accountID, err))
	}
}

// Get returns a bet by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Bet, error) {
	return s.bets.Get(ctx, id)
}

// ListByAccount returns an account's bet history.
func (s *Service) ListByAccount(ctx context.Context, accountID string, opts domain.ListOpts) ([]domain.Bet, error) {
	return s.bets.ListByAccount(ctx, accountID, opts)
}

func (s *Service) emit(ctx context.Context, bet domain.Bet, pool domain.Pool) {
	e := domain.Event{
		Type:   domain.EventBetPlaced,
		PoolID: pool.ID,
		Detail: map[string]any{
			"bet_id":  bet.ID,
			"account": bet.AccountID,
			"side":    string(bet.Side),
			"amount":  bet.Amount,
			"odds":    bet.Odds.String(),
			"stake_a": pool.StakeA,
			"stake_b": pool.StakeB,
		},
		CreatedAt: time.Now().UTC(),
	}
	seq, err := s.events.Append(ctx, e)
	if err != nil {
		s.logger.Error("event log append failed", slog.String("error", err.Error()))
	}
	e.Seq = seq

	if s.bus != nil {
		if err := s.bus.Publish(ctx, domain.EventChannel(domain.EventBetPlaced), e.Encode()); err != nil {
			s.logger.Warn("bet event publish failed", slog.String("error", err.Error()))
		}
	}
}
