package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/domain"
)

// The standalone wiring hands these concrete types to code expecting the
// domain interfaces.
var (
	_ domain.AccountStore = (*AccountStore)(nil)
	_ domain.PoolStore    = (*PoolStore)(nil)
	_ domain.BetStore     = (*BetStore)(nil)
	_ domain.EventStore   = (*EventStore)(nil)
)

func TestAccountStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()

	acct := domain.Account{ID: "alice", Balance: domain.Tokens(100)}
	require.NoError(t, s.Create(ctx, acct))
	assert.ErrorIs(t, s.Create(ctx, acct), domain.ErrAlreadyExists)

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, acct, got)

	_, err = s.Get(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	acct.Balance = domain.Tokens(60)
	require.NoError(t, s.Update(ctx, acct))
	got, err = s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens(60), got.Balance)

	assert.ErrorIs(t, s.Update(ctx, domain.Account{ID: "bob"}), domain.ErrNotFound)
}

func TestAccountStoreListAndCount(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()

	for _, id := range []string{"charlie", "alice", "bob"} {
		require.NoError(t, s.Create(ctx, domain.Account{ID: id}))
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Listing is id-ordered and paginated.
	all, err := s.List(ctx, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].ID)
	assert.Equal(t, "charlie", all[2].ID)

	page, err := s.List(ctx, domain.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].ID)

	empty, err := s.List(ctx, domain.ListOpts{Offset: 9})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPoolStoreListByStatusOrdersByOpenedAt(t *testing.T) {
	ctx := context.Background()
	s := NewPoolStore()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"newest", "oldest", "middle"} {
		offset := map[string]time.Duration{"oldest": 0, "middle": time.Minute, "newest": 2 * time.Minute}[id]
		require.NoError(t, s.Create(ctx, domain.Pool{
			ID:       id,
			Status:   domain.PoolStatusActive,
			OpenedAt: base.Add(offset),
		}), "pool %d", i)
	}
	require.NoError(t, s.Create(ctx, domain.Pool{ID: "done", Status: domain.PoolStatusResolved, OpenedAt: base}))

	active, err := s.ListByStatus(ctx, domain.PoolStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "oldest", active[0].ID)
	assert.Equal(t, "middle", active[1].ID)
	assert.Equal(t, "newest", active[2].ID)
}

func TestPoolStoreListRecent(t *testing.T) {
	ctx := context.Background()
	s := NewPoolStore()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.Create(ctx, domain.Pool{
			ID:       id,
			Status:   domain.PoolStatusResolved,
			OpenedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].ID)
	assert.Equal(t, "second", recent[1].ID)
}

func TestBetStoreSettleAndListing(t *testing.T) {
	ctx := context.Background()
	s := NewBetStore()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	bets := []domain.Bet{
		{ID: "b2", PoolID: "p1", AccountID: "alice", PlacedAt: base.Add(time.Second)},
		{ID: "b1", PoolID: "p1", AccountID: "alice", PlacedAt: base},
		{ID: "b3", PoolID: "p2", AccountID: "bob", PlacedAt: base.Add(2 * time.Second)},
	}
	for _, b := range bets {
		require.NoError(t, s.Create(ctx, b))
	}
	assert.ErrorIs(t, s.Create(ctx, bets[0]), domain.ErrAlreadyExists)

	// Per-pool listing is in placement order.
	inPool, err := s.ListByPool(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, inPool, 2)
	assert.Equal(t, "b1", inPool[0].ID)
	assert.Equal(t, "b2", inPool[1].ID)

	byAccount, err := s.ListByAccount(ctx, "alice", domain.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "b2", byAccount[0].ID)

	settledAt := base.Add(time.Minute)
	require.NoError(t, s.Settle(ctx, "b1", domain.BetStatusWon, domain.Tokens(19), settledAt))
	got, err := s.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)
	assert.Equal(t, domain.Tokens(19), got.Payout)
	require.NotNil(t, got.SettledAt)
	assert.True(t, got.SettledAt.Equal(settledAt))

	assert.ErrorIs(t, s.Settle(ctx, "absent", domain.BetStatusWon, 0, settledAt), domain.ErrNotFound)
}

func TestEventStoreSequencing(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()

	for i := 0; i < 3; i++ {
		seq, err := s.Append(ctx, domain.Event{Type: domain.EventPhaseChanged, PoolID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), seq)
	}
	_, err := s.Append(ctx, domain.Event{Type: domain.EventPhaseChanged, PoolID: "p2"})
	require.NoError(t, err)

	byPool, err := s.ListByPool(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, byPool, 3)
	assert.Equal(t, int64(1), byPool[0].Seq)
	assert.Equal(t, int64(3), byPool[2].Seq)

	since, err := s.ListSince(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, int64(3), since[0].Seq)

	limited, err := s.ListSince(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
