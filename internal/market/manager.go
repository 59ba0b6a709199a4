// Package market owns the betting-pool lifecycle and odds computation. The
// manager is the only writer of pool metadata; stake mutations arrive from
// bet execution under the pool's critical section.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/sentiment"
)

// Config holds pool manager parameters.
type Config struct {
	Pricing PricingConfig

	// SeedLiquidity maps bet type to the initial house liquidity seed;
	// DefaultSeed applies to unlisted types.
	SeedLiquidity map[domain.BetType]int64
	DefaultSeed   int64

	// Market-making: any active pool whose total stake is below
	// LiquidityFloor receives top-ups of TopUpAmount, but never below the
	// house's own HouseFloor balance.
	LiquidityFloor int64
	TopUpAmount    int64
	HouseFloor     int64
	MakerInterval  time.Duration
}

// Manager owns pools. It holds one mutex per pool; bet acceptance and pool
// close contend on that mutex, which is what makes them mutually exclusive.
type Manager struct {
	pools  domain.PoolStore
	events domain.EventStore
	bus    domain.SignalBus
	cache  domain.PoolCache // optional
	ledger *ledger.Ledger
	sent   *sentiment.Tracker
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a pool manager. cache may be nil.
func NewManager(
	pools domain.PoolStore,
	events domain.EventStore,
	bus domain.SignalBus,
	cache domain.PoolCache,
	led *ledger.Ledger,
	sent *sentiment.Tracker,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		pools:  pools,
		events: events,
		bus:    bus,
		cache:  cache,
		ledger: led,
		sent:   sent,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "market")),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Lock acquires the pool-scoped critical section and returns its unlock
// function. Every stake mutation, odds freeze, and the close transition for
// one pool happen inside this section; bets against different pools proceed
// independently.
func (m *Manager) Lock(poolID string) func() {
	m.mu.Lock()
	lk, ok := m.locks[poolID]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[poolID] = lk
	}
	m.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}

// seedFor returns the initial house liquidity for a bet type.
func (m *Manager) seedFor(bt domain.BetType) int64 {
	if seed, ok := m.cfg.SeedLiquidity[bt]; ok {
		return seed
	}
	return m.cfg.DefaultSeed
}

// CreatePool allocates a new active pool for a matchup, funding the house
// liquidity seed from the house account into escrow. Only the scheduler
// calls this.
func (m *Manager) CreatePool(ctx context.Context, matchup domain.Matchup, bt domain.BetType) (domain.Pool, error) {
	if m.ledger.Halted() {
		return domain.Pool{}, domain.ErrEngineHalted
	}

	seed := m.seedFor(bt)
	if seed > 0 {
		if err := m.ledger.Transfer(ctx, domain.HouseAccountID, domain.EscrowAccountID, seed); err != nil {
			return domain.Pool{}, fmt.Errorf("market: seed pool liquidity: %w", err)
		}
	}

	pool := domain.Pool{
		ID:             uuid.New().String(),
		MatchID:        matchup.MatchID,
		ArenaID:        matchup.ArenaID,
		BetType:        bt,
		FighterA:       matchup.FighterA,
		FighterB:       matchup.FighterB,
		HouseLiquidity: seed,
		Status:         domain.PoolStatusActive,
		OpenedAt:       time.Now().UTC(),
	}
	if err := m.pools.Create(ctx, pool); err != nil {
		// Return the seed before surfacing the failure.
		if seed > 0 {
			if rbErr := m.ledger.Transfer(ctx, domain.EscrowAccountID, domain.HouseAccountID, seed); rbErr != nil {
				m.ledger.Halt(fmt.Sprintf("pool seed rollback failed: %v", rbErr))
			}
		}
		return domain.Pool{}, fmt.Errorf("market: create pool: %w", err)
	}

	m.emit(ctx, domain.EventPoolCreated, pool.ID, map[string]any{
		"match_id":  pool.MatchID,
		"bet_type":  string(bt),
		"fighter_a": pool.FighterA,
		"fighter_b": pool.FighterB,
		"liquidity": seed,
	})
	m.logger.Info("pool created",
		slog.String("pool", pool.ID),
		slog.String("match", pool.MatchID),
		slog.Int64("seed", seed),
	)
	return pool, nil
}

// Get returns a pool by id.
func (m *Manager) Get(ctx context.Context, id string) (domain.Pool, error) {
	return m.pools.Get(ctx, id)
}

// CurrentOdds recomputes the live odds for a pool from its stakes, house
// liquidity, and the arena's sentiment bias.
func (m *Manager) CurrentOdds(ctx context.Context, poolID string) (domain.OddsPair, error) {
	pool, err := m.pools.Get(ctx, poolID)
	if err != nil {
		return domain.OddsPair{}, err
	}
	return m.OddsFor(pool), nil
}

// OddsFor computes odds for an already-loaded pool snapshot.
func (m *Manager) OddsFor(pool domain.Pool) domain.OddsPair {
	return CurrentOdds(pool, m.sent.Bias(pool.ArenaID), m.cfg.Pricing)
}

// Summary builds the read-only pool view, preferring the cache.
func (m *Manager) Summary(ctx context.Context, poolID string) (domain.PoolSummary, error) {
	if m.cache != nil {
		if s, err := m.cache.GetSummary(ctx, poolID); err == nil {
			return s, nil
		}
	}

	pool, err := m.pools.Get(ctx, poolID)
	if err != nil {
		return domain.PoolSummary{}, err
	}
	s := m.summarize(pool)
	if m.cache != nil {
		if err := m.cache.SetSummary(ctx, s); err != nil {
			m.logger.Warn("pool summary cache write failed",
				slog.String("pool", poolID),
				slog.String("error", err.Error()),
			)
		}
	}
	return s, nil
}

func (m *Manager) summarize(pool domain.Pool) domain.PoolSummary {
	odds := m.OddsFor(pool)
	return domain.PoolSummary{
		ID:           pool.ID,
		MatchID:      pool.MatchID,
		BetType:      pool.BetType,
		FighterA:     pool.FighterA,
		FighterB:     pool.FighterB,
		StakeA:       pool.StakeA,
		StakeB:       pool.StakeB,
		Liquidity:    pool.HouseLiquidity,
		OddsA:        odds.SideA.Round(2).String(),
		OddsB:        odds.SideB.Round(2).String(),
		Status:       pool.Status,
		Participants: pool.Participants,
		ViralScore:   pool.ViralScore,
		OpenedAt:     pool.OpenedAt,
	}
}

// ClosePool transitions an active pool to closed. It takes the pool's
// critical section, so no bet can be accepted mid-close and any bet that
// arrives afterwards sees the closed status.
func (m *Manager) ClosePool(ctx context.Context, poolID string) error {
	unlock := m.Lock(poolID)
	defer unlock()

	pool, err := m.pools.Get(ctx, poolID)
	if err != nil {
		return err
	}
	if pool.Status != domain.PoolStatusActive {
		return fmt.Errorf("market: close pool %s in status %s: %w", poolID, pool.Status, domain.ErrPoolClosed)
	}

	now := time.Now().UTC()
	pool.Status = domain.PoolStatusClosed
	pool.ClosedAt = &now
	if err := m.pools.Update(ctx, pool); err != nil {
		return fmt.Errorf("market: close pool %s: %w", poolID, err)
	}
	m.invalidate(ctx, poolID)

	m.emit(ctx, domain.EventPoolClosed, poolID, map[string]any{
		"stake_a":      pool.StakeA,
		"stake_b":      pool.StakeB,
		"participants": pool.Participants,
	})
	m.logger.Info("pool closed",
		slog.String("pool", poolID),
		slog.Int64("total_staked", pool.TotalStaked()),
	)
	return nil
}

// ApplyBet adds stake to one side of an active pool and bumps the
// participant count. The caller must hold the pool's critical section.
func (m *Manager) ApplyBet(ctx context.Context, poolID string, side domain.PoolSide, amount int64) (domain.Pool, error) {
	pool, err := m.pools.Get(ctx, poolID)
	if err != nil {
		return domain.Pool{}, err
	}
	if pool.Status != domain.PoolStatusActive {
		return domain.Pool{}, fmt.Errorf("market: pool %s status %s: %w", poolID, pool.Status, domain.ErrPoolClosed)
	}

	if side == domain.SideA {
		pool.StakeA += amount
	} else {
		pool.StakeB += amount
	}
	pool.Participants++

	if err := m.pools.Update(ctx, pool); err != nil {
		return domain.Pool{}, fmt.Errorf("market: apply bet to pool %s: %w", poolID, err)
	}
	m.invalidate(ctx, poolID)
	return pool, nil
}

// RevertBet undoes an ApplyBet that could not be committed downstream. The
// caller must still hold the pool's critical section.
func (m *Manager) RevertBet(ctx context.Context, poolID string, side domain.PoolSide, amount int64) error {
	pool, err := m.pools.Get(ctx, poolID)
	if err != nil {
		return err
	}

	if side == domain.SideA {
		pool.StakeA -= amount
	} else {
		pool.StakeB -= amount
	}
	pool.Participants--

	if err := m.pools.Update(ctx, pool); err != nil {
		return fmt.Errorf("market: revert bet on pool %s: %w", poolID, err)
	}
	m.invalidate(ctx, poolID)
	return nil
}

// AddViralScore accumulates viral score on a pool and, when the running
// score crosses threshold, resets it to zero and reports the trigger. The
// check-and-reset runs under the pool lock so concurrent bets cannot
// double-trigger on the same accumulation.
func (m *Manager) AddViralScore(ctx context.Context, poolID string, delta, threshold float64) (float64, bool, error) {
	unlock := m.Lock(poolID)
	defer unlock()

	pool, err := m.pools.Get(ctx, poolID)
	if err != nil {
		return 0, false, err
	}

	pool.ViralScore += delta
	total := pool.ViralScore
	triggered := threshold > 0 && total >= threshold
	if triggered {
		pool.ViralScore = 0
	}

	if err := m.pools.Update(ctx, pool); err != nil {
		return 0, false, fmt.Errorf("market: viral score on pool %s: %w", poolID, err)
	}
	m.invalidate(ctx, poolID)
	return total, triggered, nil
}

// BoostLiquidity moves amount from the house account into a pool's
// liquidity, honoring the house floor. Used by the maker loop and viral
// boosts. Returns the amount actually injected, which may be zero.
func (m *Manager) BoostLiquidity(ctx context.Context, poolID string, amount int64) (int64, error) {
	houseBalance, err := m.ledger.Balance(ctx, domain.HouseAccountID)
	if err != nil {
		return 0, fmt.Errorf("market: house balance: %w", err)
	}
	available := houseBalance - m.cfg.HouseFloor
	if available <= 0 {
		return 0, nil
	}
	if amount > available {
		amount = available
	}

	unlock := m.Lock(poolID)
	defer unlock()

	pool, err := m.pools.Get(ctx, poolID)
	if err != nil {
		return 0, err
	}
	if pool.Status != domain.PoolStatusActive {
		return 0, nil
	}

	if err := m.ledger.Transfer(ctx, domain.HouseAccountID, domain.EscrowAccountID, amount); err != nil {
		return 0, fmt.Errorf("market: boost liquidity pool %s: %w", poolID, err)
	}

	pool.HouseLiquidity += amount
	if err := m.pools.Update(ctx, pool); err != nil {
		if rbErr := m.ledger.Transfer(ctx, domain.EscrowAccountID, domain.HouseAccountID, amount); rbErr != nil {
			m.ledger.Halt(fmt.Sprintf("liquidity boost rollback failed: %v", rbErr))
		}
		return 0, fmt.Errorf("market: boost liquidity pool %s: %w", poolID, err)
	}
	m.invalidate(ctx, poolID)
	return amount, nil
}

// UpdateResolution persists a settlement transition. Only the settlement
// engine calls this, holding the pool's critical section.
func (m *Manager) UpdateResolution(ctx context.Context, pool domain.Pool) error {
	if err := m.pools.Update(ctx, pool); err != nil {
		return fmt.Errorf("market: update resolution pool %s: %w", pool.ID, err)
	}
	m.invalidate(ctx, pool.ID)
	return nil
}

// emit appends to the event log and publishes on the bus. Notifications are
// fire-and-forget; failures are logged, never surfaced to callers.
func (m *Manager) emit(ctx context.Context, t domain.EventType, poolID string, detail map[string]any) {
	e := domain.Event{
		Type:      t,
		PoolID:    poolID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	seq, err := m.events.Append(ctx, e)
	if err != nil {
		m.logger.Error("event log append failed",
			slog.String("type", string(t)),
			slog.String("error", err.Error()),
		)
	}
	e.Seq = seq

	if m.bus != nil {
		if err := m.bus.Publish(ctx, domain.EventChannel(t), e.Encode()); err != nil {
			m.logger.Warn("event publish failed",
				slog.String("type", string(t)),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (m *Manager) invalidate(ctx context.Context, poolID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx, poolID); err != nil {
		m.logger.Warn("pool cache invalidation failed",
			slog.String("pool", poolID),
			slog.String("error", err.Error()),
		)
	}
}
