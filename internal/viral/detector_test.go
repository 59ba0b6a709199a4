package viral

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/market"
	"github.com/colosseo/arenabook/internal/sentiment"
	"github.com/colosseo/arenabook/internal/store/memory"
)

type fixture struct {
	detector *Detector
	ledger   *ledger.Ledger
	market   *market.Manager
	events   *memory.EventStore
	pool     domain.Pool
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	led := ledger.New(memory.NewAccountStore(), ledger.Config{
		InitialGrant:      domain.Tokens(100),
		HouseFloat:        domain.Tokens(100_000),
		MaxAccountBalance: domain.Tokens(10_000_000),
	}, logger)
	require.NoError(t, led.Bootstrap(ctx))

	events := memory.NewEventStore()
	mkt := market.NewManager(memory.NewPoolStore(), events, nil, nil, led,
		sentiment.New(sentiment.DefaultConfig(), logger), market.Config{
			Pricing:     market.DefaultPricing(),
			DefaultSeed: domain.Tokens(500),
		}, logger)

	pool, err := mkt.CreatePool(ctx, domain.Matchup{
		MatchID:  "match-1",
		ArenaID:  "colosseum-1",
		FighterA: "Maximus",
		FighterB: "Commodus",
	}, domain.BetTypeHeadToHead)
	require.NoError(t, err)

	det := New(cfg, led, mkt, events, nil, nil, logger)
	return &fixture{detector: det, ledger: led, market: mkt, events: events, pool: pool}
}

func betInput(pool domain.Pool, amount int64, odds float64, influence float64) Input {
	return Input{
		Bet: domain.Bet{
			ID:        "bet-1",
			AccountID: "spectator-1",
			PoolID:    pool.ID,
			Side:      domain.SideA,
			Amount:    amount,
			Odds:      decimal.NewFromFloat(odds),
			Status:    domain.BetStatusActive,
		},
		Pool:      pool,
		Influence: influence,
	}
}

func TestScoreComponents(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	tests := []struct {
		name string
		in   Input
		want float64
	}{
		{
			// 500-token bet maxes size, 5.0 odds maxes odds, 0.9 influence
			// qualifies; impact is 500/1000 of the post-bet pool.
			name: "everything extreme",
			in: betInput(domain.Pool{StakeA: domain.Tokens(500), HouseLiquidity: domain.Tokens(500)},
				domain.Tokens(500), 5.0, 0.9),
			want: 3.5,
		},
		{
			// 50-token bet scored 0.1 on size, nothing else qualifies;
			// impact is 50/550.
			name: "ordinary bet",
			in: betInput(domain.Pool{StakeA: domain.Tokens(50), HouseLiquidity: domain.Tokens(500)},
				domain.Tokens(50), 1.9, 0.1),
			want: 0.1 + 50.0/550.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, f.detector.Score(tt.in), 1e-9)
		})
	}
}

func TestObserveBelowThresholdAccumulates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	in := betInput(f.pool, domain.Tokens(100), 1.9, 0.1)
	triggered, err := f.detector.Observe(ctx, in)
	require.NoError(t, err)
	assert.False(t, triggered)

	// The score accumulated on the pool instead.
	pool, err := f.market.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Greater(t, pool.ViralScore, 0.0)
}

func TestObserveTriggerPaysBonusAndResets(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Threshold = 3 // one fully extreme bet crosses it
	f := newFixture(t, cfg)

	_, err := f.ledger.CreateAccount(ctx, "spectator-1")
	require.NoError(t, err)

	in := betInput(f.pool, domain.Tokens(500), 6.0, 0.9)
	triggered, err := f.detector.Observe(ctx, in)
	require.NoError(t, err)
	assert.True(t, triggered)

	// The bonus was minted into the triggering account.
	acct, err := f.ledger.Get(ctx, "spectator-1")
	require.NoError(t, err)
	assert.Equal(t, cfg.Bonus, acct.BonusEarned)
	assert.Equal(t, domain.Tokens(100)+cfg.Bonus, acct.Balance)

	// The pool received a liquidity boost and its score reset.
	pool, err := f.market.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(500)+cfg.LiquidityBoost, pool.HouseLiquidity)
	assert.Zero(t, pool.ViralScore)

	// Minted bonus plus moved liquidity still reconcile.
	rec, err := f.ledger.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Balanced())

	// A viral event landed in the log.
	events, err := f.events.ListByPool(ctx, f.pool.ID)
	require.NoError(t, err)
	var sawViral bool
	for _, e := range events {
		if e.Type == domain.EventViral {
			sawViral = true
		}
	}
	assert.True(t, sawViral)
}

func TestObserveRequiresFreshAccumulation(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Threshold = 3
	f := newFixture(t, cfg)

	in := betInput(f.pool, domain.Tokens(500), 6.0, 0.9)
	triggered, err := f.detector.Observe(ctx, in)
	require.NoError(t, err)
	require.True(t, triggered)

	// A modest follow-up bet does not re-trigger off the spent score.
	triggered, err = f.detector.Observe(ctx, betInput(f.pool, domain.Tokens(10), 1.9, 0.1))
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestWithScorers(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.detector.WithScorers(func(Input) float64 { return 42 })
	assert.Equal(t, 42.0, f.detector.Score(Input{}))
}

func TestObserveZeroScoreIsFree(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	f := newFixture(t, cfg)

	// A zero-amount input scores zero everywhere and must not touch the pool.
	in := betInput(domain.Pool{ID: f.pool.ID}, 0, 1.01, 0)
	triggered, err := f.detector.Observe(ctx, in)
	require.NoError(t, err)
	assert.False(t, triggered)

	pool, err := f.market.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Zero(t, pool.ViralScore)
}
