package betting

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
	svc    *Service
	ledger *ledger.Ledger
	market *market.Manager
	sent   *sentiment.Tracker
	pool   domain.Pool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	led := ledger.New(memory.NewAccountStore(), ledger.Config{
		InitialGrant:      domain.Tokens(100),
		HouseFloat:        domain.Tokens(100_000),
		MaxAccountBalance: domain.Tokens(10_000_000),
	}, logger)
	require.NoError(t, led.Bootstrap(ctx))

	sent := sentiment.New(sentiment.DefaultConfig(), logger)
	events := memory.NewEventStore()
	mkt := market.NewManager(memory.NewPoolStore(), events, nil, nil, led, sent, market.Config{
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

	svc := NewService(led, mkt, sent, nil, memory.NewBetStore(), events, nil, Config{
		MinBet: domain.Tokens(1),
		MaxBet: domain.Tokens(10_000),
	}, logger)

	return &fixture{svc: svc, ledger: led, market: mkt, sent: sent, pool: pool}
}

func TestPlaceBet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bet, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "spectator-1",
		PoolID:    f.pool.ID,
		Side:      domain.SideA,
		Amount:    domain.Tokens(10),
	})
	require.NoError(t, err)

	// Odds are frozen from the pool state before this bet: an even seeded
	// pool prices both sides at 1.90.
	assert.True(t, bet.Odds.Equal(decimal.NewFromFloat(1.9)), "got %s", bet.Odds)
	assert.Equal(t, domain.PotentialPayout(domain.Tokens(10), bet.Odds), bet.Potential)
	assert.Equal(t, domain.BetStatusActive, bet.Status)

	// The stake moved from the account to escrow.
	bal, err := f.ledger.Balance(ctx, "spectator-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(90), bal)

	// The pool totals reflect the bet.
	pool, err := f.market.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(10), pool.StakeA)
	assert.Zero(t, pool.StakeB)
	assert.EqualValues(t, 1, pool.Participants)

	// The bet is retrievable.
	got, err := f.svc.Get(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, bet.ID, got.ID)
}

func TestPlaceFreezesOddsPerBet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "alice", PoolID: f.pool.ID, Side: domain.SideA, Amount: domain.Tokens(50),
	})
	require.NoError(t, err)

	second, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "bob", PoolID: f.pool.ID, Side: domain.SideA, Amount: domain.Tokens(50),
	})
	require.NoError(t, err)

	// The second bettor on the same side gets shorter odds because the
	// first bet already moved the pool; neither freeze changes afterwards.
	assert.True(t, second.Odds.LessThan(first.Odds),
		"second %s should be shorter than first %s", second.Odds, first.Odds)
}

func TestPlaceValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		req  PlaceRequest
	}{
		{"missing account", PlaceRequest{PoolID: f.pool.ID, Side: domain.SideA, Amount: domain.Tokens(5)}},
		{"missing pool", PlaceRequest{AccountID: "a", Side: domain.SideA, Amount: domain.Tokens(5)}},
		{"unknown side", PlaceRequest{AccountID: "a", PoolID: f.pool.ID, Side: "c", Amount: domain.Tokens(5)}},
		{"below minimum", PlaceRequest{AccountID: "a", PoolID: f.pool.ID, Side: domain.SideA, Amount: domain.Tokens(1) - 1}},
		{"above maximum", PlaceRequest{AccountID: "a", PoolID: f.pool.ID, Side: domain.SideA, Amount: domain.Tokens(10_001)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Place(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestPlaceInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "spectator-1",
		PoolID:    f.pool.ID,
		Side:      domain.SideB,
		Amount:    domain.Tokens(101),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// No partial state: grant intact, pool untouched.
	bal, err := f.ledger.Balance(ctx, "spectator-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(100), bal)

	pool, err := f.market.Get(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Zero(t, pool.StakeB)
	assert.Zero(t, pool.Participants)
}

func TestPlaceOnClosedPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.market.ClosePool(ctx, f.pool.ID))

	_, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "spectator-1",
		PoolID:    f.pool.ID,
		Side:      domain.SideA,
		Amount:    domain.Tokens(10),
	})
	assert.ErrorIs(t, err, domain.ErrPoolClosed)

	bal, err := f.ledger.Balance(ctx, "spectator-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(100), bal)
}

func TestPlaceOddsSlippage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	maxOdds := decimal.NewFromFloat(1.5) // live odds are 1.90
	_, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "spectator-1",
		PoolID:    f.pool.ID,
		Side:      domain.SideA,
		Amount:    domain.Tokens(10),
		MaxOdds:   &maxOdds,
	})
	assert.ErrorIs(t, err, domain.ErrOddsSlippage)

	bal, err := f.ledger.Balance(ctx, "spectator-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(100), bal)

	// A generous cap passes.
	maxOdds = decimal.NewFromFloat(2.0)
	_, err = f.svc.Place(ctx, PlaceRequest{
		AccountID: "spectator-1",
		PoolID:    f.pool.ID,
		Side:      domain.SideA,
		Amount:    domain.Tokens(10),
		MaxOdds:   &maxOdds,
	})
	assert.NoError(t, err)
}

func TestPlaceWhileHalted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.ledger.Halt("manual")

	_, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "spectator-1",
		PoolID:    f.pool.ID,
		Side:      domain.SideA,
		Amount:    domain.Tokens(10),
	})
	assert.ErrorIs(t, err, domain.ErrEngineHalted)
}

func TestPlaceSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Place(ctx, PlaceRequest{
		AccountID: "spectator-1",
		PoolID:    f.pool.ID,
		Side:      domain.SideA,
		Amount:    domain.Tokens(50),
	})
	require.NoError(t, err)

	// Sentiment saw the flow and the account's influence grew.
	assert.Greater(t, f.sent.Bias("colosseum-1"), 0.5)

	acct, err := f.ledger.Get(ctx, "spectator-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, acct.BetCount)
	assert.Greater(t, acct.Influence, 0.0)
}

func TestListByAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Place(ctx, PlaceRequest{
			AccountID: "spectator-1",
			PoolID:    f.pool.ID,
			Side:      domain.SideA,
			Amount:    domain.Tokens(5),
		})
		require.NoError(t, err)
	}

	bets, err := f.svc.ListByAccount(ctx, "spectator-1", domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, bets, 3)

	none, err := f.svc.ListByAccount(ctx, "stranger", domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}
