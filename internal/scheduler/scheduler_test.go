package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/arena"
	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/market"
	"github.com/colosseo/arenabook/internal/sentiment"
	"github.com/colosseo/arenabook/internal/settlement"
	"github.com/colosseo/arenabook/internal/store/memory"
)

// instantRunner completes every match immediately with a side A victory.
type instantRunner struct{}

func (instantRunner) Run(_ context.Context, m domain.Matchup) (domain.MatchOutcome, error) {
	winner := domain.SideA
	return domain.MatchOutcome{MatchID: m.MatchID, Winner: &winner, Rounds: 1}, nil
}

// stuckRunner never finishes; the fight timeout has to force a draw.
type stuckRunner struct{}

func (stuckRunner) Run(ctx context.Context, _ domain.Matchup) (domain.MatchOutcome, error) {
	<-ctx.Done()
	return domain.MatchOutcome{}, ctx.Err()
}

// recordingArchiver captures archived pool ids.
type recordingArchiver struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingArchiver) ArchivePool(_ context.Context, poolID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, poolID)
	return nil
}

func (r *recordingArchiver) archived() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type fixture struct {
	scheduler *Scheduler
	ledger    *ledger.Ledger
	pools     *memory.PoolStore
	archiver  *recordingArchiver
}

func newFixture(t *testing.T, combat MatchRunner, cfg Config) *fixture {
	return newFixtureWith(t, combat, cfg, nil)
}

// newFixtureWith lets a test interpose on the pool store; wrap may be nil.
func newFixtureWith(t *testing.T, combat MatchRunner, cfg Config, wrap func(domain.PoolStore) domain.PoolStore) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	led := ledger.New(memory.NewAccountStore(), ledger.Config{
		InitialGrant:      domain.Tokens(100),
		HouseFloat:        domain.Tokens(100_000),
		MaxAccountBalance: domain.Tokens(10_000_000),
	}, logger)
	require.NoError(t, led.Bootstrap(ctx))

	pools := memory.NewPoolStore()
	var store domain.PoolStore = pools
	if wrap != nil {
		store = wrap(pools)
	}
	bets := memory.NewBetStore()
	events := memory.NewEventStore()
	mkt := market.NewManager(store, events, nil, nil, led,
		sentiment.New(sentiment.DefaultConfig(), logger), market.Config{
			Pricing:     market.DefaultPricing(),
			DefaultSeed: domain.Tokens(500),
		}, logger)
	settle := settlement.NewEngine(led, mkt, bets, events, nil, nil, logger)

	roster, err := arena.NewRoster(cfg.ArenaID, []string{"Maximus", "Commodus", "Spartacus"})
	require.NoError(t, err)

	arch := &recordingArchiver{}
	sched := New(mkt, settle, combat, roster, arch, events, nil, cfg, logger)
	return &fixture{scheduler: sched, ledger: led, pools: pools, archiver: arch}
}

func fastConfig() Config {
	return Config{
		Intermission: time.Millisecond,
		Betting:      5 * time.Millisecond,
		Resolution:   time.Millisecond,
		FightTimeout: 250 * time.Millisecond,
		ArenaID:      "colosseum-1",
		BetType:      domain.BetTypeHeadToHead,
	}
}

func (f *fixture) poolsIn(t *testing.T, status domain.PoolStatus) []domain.Pool {
	t.Helper()
	ps, err := f.pools.ListByStatus(context.Background(), status)
	require.NoError(t, err)
	return ps
}

func TestCycleResolvesPool(t *testing.T) {
	f := newFixture(t, instantRunner{}, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(f.poolsIn(t, domain.PoolStatusResolved)) > 0
	}, 5*time.Second, 5*time.Millisecond, "no pool resolved")

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	resolved := f.poolsIn(t, domain.PoolStatusResolved)
	require.NotEmpty(t, resolved)
	pool := resolved[0]
	require.NotNil(t, pool.WinningSide)
	assert.Equal(t, domain.SideA, *pool.WinningSide)
	assert.Equal(t, "colosseum-1", pool.ArenaID)
	assert.NotNil(t, pool.ResolvedAt)

	// The resolved pool was exported.
	assert.Contains(t, f.archiver.archived(), pool.ID)

	// Nothing drifted over the cycles that ran.
	rec, err := f.ledger.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Balanced())
}

func TestFightTimeoutForcesDraw(t *testing.T) {
	cfg := fastConfig()
	cfg.FightTimeout = 5 * time.Millisecond
	f := newFixture(t, stuckRunner{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	// A stuck match times out; a head-to-head pool cannot settle a draw and
	// is voided instead.
	require.Eventually(t, func() bool {
		return len(f.poolsIn(t, domain.PoolStatusVoid)) > 0
	}, 5*time.Second, 5*time.Millisecond, "no pool voided")

	cancel()
	<-done

	voided := f.poolsIn(t, domain.PoolStatusVoid)
	require.NotEmpty(t, voided)
	assert.Equal(t, "indeterminate outcome", voided[0].VoidReason)
}

func TestShutdownDuringBettingVoidsPool(t *testing.T) {
	cfg := fastConfig()
	cfg.Betting = time.Hour // park the scheduler in the betting phase
	f := newFixture(t, instantRunner{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(f.poolsIn(t, domain.PoolStatusActive)) > 0
	}, 5*time.Second, 5*time.Millisecond, "no active pool")

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	// The interrupted betting pool went home with everyone's stake.
	voided := f.poolsIn(t, domain.PoolStatusVoid)
	require.Len(t, voided, 1)
	assert.Equal(t, "scheduler shutdown", voided[0].VoidReason)
	assert.Empty(t, f.poolsIn(t, domain.PoolStatusActive))
}

// closeRefusingPoolStore rejects the update that would mark a pool closed,
// simulating a storage fault at the betting deadline.
type closeRefusingPoolStore struct {
	domain.PoolStore
}

func (s closeRefusingPoolStore) Update(ctx context.Context, p domain.Pool) error {
	if p.Status == domain.PoolStatusClosed {
		return errors.New("storage write refused")
	}
	return s.PoolStore.Update(ctx, p)
}

func TestClosePoolFailureVoidsPool(t *testing.T) {
	f := newFixtureWith(t, instantRunner{}, fastConfig(), func(s domain.PoolStore) domain.PoolStore {
		return closeRefusingPoolStore{PoolStore: s}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	// The pool that could not close must end voided, not stay active in
	// escrow forever.
	require.Eventually(t, func() bool {
		return len(f.poolsIn(t, domain.PoolStatusVoid)) > 0
	}, 5*time.Second, 5*time.Millisecond, "no pool voided")

	cancel()
	<-done

	voided := f.poolsIn(t, domain.PoolStatusVoid)
	require.NotEmpty(t, voided)
	reasons := make([]string, 0, len(voided))
	for _, p := range voided {
		reasons = append(reasons, p.VoidReason)
	}
	assert.Contains(t, reasons, "pool close failed")
	assert.Empty(t, f.poolsIn(t, domain.PoolStatusActive))

	rec, err := f.ledger.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Balanced())
}

func TestStateTracksPhases(t *testing.T) {
	cfg := fastConfig()
	cfg.Betting = time.Hour
	f := newFixture(t, instantRunner{}, cfg)

	// Before Run the state is zero valued.
	assert.Empty(t, f.scheduler.State().Phase)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.scheduler.State().Phase == domain.PhaseBetting
	}, 5*time.Second, time.Millisecond, "never reached betting phase")

	st := f.scheduler.State()
	assert.NotEmpty(t, st.PoolID)
	assert.NotEmpty(t, st.MatchID)
	assert.EqualValues(t, 1, st.Cycle)
	assert.True(t, st.Deadline.After(st.EnteredAt))

	cancel()
	<-done
}
