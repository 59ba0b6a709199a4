package market

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/sentiment"
	"github.com/colosseo/arenabook/internal/store/memory"
)

type makerFixture struct {
	mkt   *Manager
	led   *ledger.Ledger
	pools domain.PoolStore
	pool  domain.Pool
}

func newMakerFixture(t *testing.T, houseFloat, houseFloor int64) *makerFixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	led := ledger.New(memory.NewAccountStore(), ledger.Config{
		InitialGrant:      domain.Tokens(100),
		HouseFloat:        houseFloat,
		MaxAccountBalance: domain.Tokens(10_000_000),
	}, logger)
	require.NoError(t, led.Bootstrap(ctx))

	pools := memory.NewPoolStore()
	mkt := NewManager(pools, memory.NewEventStore(), nil, nil, led,
		sentiment.New(sentiment.DefaultConfig(), logger), Config{
			Pricing:        DefaultPricing(),
			DefaultSeed:    domain.Tokens(500),
			LiquidityFloor: domain.Tokens(100),
			TopUpAmount:    domain.Tokens(200),
			HouseFloor:     houseFloor,
		}, logger)

	pool, err := mkt.CreatePool(ctx, domain.Matchup{
		MatchID:  "match-1",
		ArenaID:  "colosseum-1",
		FighterA: "Maximus",
		FighterB: "Commodus",
	}, domain.BetTypeHeadToHead)
	require.NoError(t, err)

	return &makerFixture{mkt: mkt, led: led, pools: pools, pool: pool}
}

func TestMakerPassTopsUpThinPool(t *testing.T) {
	ctx := context.Background()
	f := newMakerFixture(t, domain.Tokens(100_000), domain.Tokens(5_000))

	f.mkt.makerPass(ctx)

	pool, err := f.pools.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(700), pool.HouseLiquidity)

	house, err := f.led.Balance(ctx, domain.HouseAccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(99_300), house)

	escrow, err := f.led.Balance(ctx, domain.EscrowAccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(700), escrow)
}

func TestMakerPassSkipsFundedPool(t *testing.T) {
	ctx := context.Background()
	f := newMakerFixture(t, domain.Tokens(100_000), domain.Tokens(5_000))

	pool, err := f.pools.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	pool.StakeA = domain.Tokens(150)
	require.NoError(t, f.pools.Update(ctx, pool))

	f.mkt.makerPass(ctx)

	pool, err = f.pools.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(500), pool.HouseLiquidity)
}

func TestBoostLiquidityClampsToHouseFloor(t *testing.T) {
	ctx := context.Background()
	// House holds 5_100 after the pool seed; the floor leaves only 100
	// available, less than the configured 200 top-up.
	f := newMakerFixture(t, domain.Tokens(5_600), domain.Tokens(5_000))

	injected, err := f.mkt.BoostLiquidity(ctx, f.pool.ID, domain.Tokens(200))
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(100), injected)

	house, err := f.led.Balance(ctx, domain.HouseAccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(5_000), house)
}

func TestBoostLiquidityStopsAtHouseFloor(t *testing.T) {
	ctx := context.Background()
	f := newMakerFixture(t, domain.Tokens(5_500), domain.Tokens(5_000))

	injected, err := f.mkt.BoostLiquidity(ctx, f.pool.ID, domain.Tokens(200))
	require.NoError(t, err)
	assert.Zero(t, injected)

	pool, err := f.pools.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(500), pool.HouseLiquidity)
}

func TestMakerPassSkipsWhileHalted(t *testing.T) {
	ctx := context.Background()
	f := newMakerFixture(t, domain.Tokens(100_000), domain.Tokens(5_000))

	f.led.Halt("forced")
	f.mkt.makerPass(ctx)

	pool, err := f.pools.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(500), pool.HouseLiquidity)
}
