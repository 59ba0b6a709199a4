package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// AccountStore persists ledger accounts. It is a dumb repository: all
// balance discipline (atomicity, non-negativity, conservation) lives in the
// ledger service, which is the store's only writer.
type AccountStore interface {
	Create(ctx context.Context, acct Account) error
	Get(ctx context.Context, id string) (Account, error)
	Update(ctx context.Context, acct Account) error
	List(ctx context.Context, opts ListOpts) ([]Account, error)
	Count(ctx context.Context) (int64, error)
}

// PoolStore persists betting pools.
type PoolStore interface {
	Create(ctx context.Context, pool Pool) error
	Get(ctx context.Context, id string) (Pool, error)
	Update(ctx context.Context, pool Pool) error
	ListByStatus(ctx context.Context, status PoolStatus) ([]Pool, error)
	ListRecent(ctx context.Context, limit int) ([]Pool, error)
}

// BetStore persists wagers.
type BetStore interface {
	Create(ctx context.Context, bet Bet) error
	Get(ctx context.Context, id string) (Bet, error)
	ListByPool(ctx context.Context, poolID string) ([]Bet, error)
	ListByAccount(ctx context.Context, accountID string, opts ListOpts) ([]Bet, error)
	Settle(ctx context.Context, id string, status BetStatus, payout int64, settledAt time.Time) error
}

// EventStore persists the append-only event log. Append assigns the
// monotonically increasing sequence number and returns it.
type EventStore interface {
	Append(ctx context.Context, e Event) (int64, error)
	ListByPool(ctx context.Context, poolID string) ([]Event, error)
	ListSince(ctx context.Context, seq int64, limit int) ([]Event, error)
}

// SignalBus publishes fire-and-forget notifications and delivers them to
// subscribers. Implementations: redis pub/sub in serve mode, an in-process
// fan-out in standalone mode.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LockManager provides distributed mutual exclusion, used to guarantee a
// single scheduler instance across processes.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter limits request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PoolCache caches pool summaries for the read API.
type PoolCache interface {
	SetSummary(ctx context.Context, s PoolSummary) error
	GetSummary(ctx context.Context, id string) (PoolSummary, error)
	Invalidate(ctx context.Context, id string) error
}

// BlobWriter uploads archive objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
