// Package memory provides in-process implementations of the domain store
// interfaces. They back the standalone run mode and the test suites, and
// mirror the postgres stores' semantics (including error sentinels).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
)

// AccountStore keeps accounts in a map guarded by a RWMutex.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]domain.Account)}
}

func (s *AccountStore) Create(_ context.Context, a domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *AccountStore) Get(_ context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *AccountStore) Update(_ context.Context, a domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return domain.ErrNotFound
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *AccountStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ids = page(ids, opts)
	out := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.accounts[id])
	}
	return out, nil
}

func (s *AccountStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.accounts)), nil
}

// PoolStore keeps pools in a map guarded by a RWMutex.
type PoolStore struct {
	mu    sync.RWMutex
	pools map[string]domain.Pool
}

func NewPoolStore() *PoolStore {
	return &PoolStore{pools: make(map[string]domain.Pool)}
}

func (s *PoolStore) Create(_ context.Context, p domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.pools[p.ID] = p
	return nil
}

func (s *PoolStore) Get(_ context.Context, id string) (domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok {
		return domain.Pool{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *PoolStore) Update(_ context.Context, p domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.pools[p.ID] = p
	return nil
}

func (s *PoolStore) ListByStatus(_ context.Context, status domain.PoolStatus) ([]domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Pool
	for _, p := range s.pools {
		if p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (s *PoolStore) ListRecent(_ context.Context, limit int) ([]domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BetStore keeps bets in a map guarded by a RWMutex, with per-pool and
// per-account listing in placement order.
type BetStore struct {
	mu   sync.RWMutex
	bets map[string]domain.Bet
}

func NewBetStore() *BetStore {
	return &BetStore{bets: make(map[string]domain.Bet)}
}

func (s *BetStore) Create(_ context.Context, b domain.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bets[b.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.bets[b.ID] = b
	return nil
}

func (s *BetStore) Get(_ context.Context, id string) (domain.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bets[id]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *BetStore) ListByPool(_ context.Context, poolID string) ([]domain.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Bet
	for _, b := range s.bets {
		if b.PoolID == poolID {
			out = append(out, b)
		}
	}
	sortBets(out)
	return out, nil
}

func (s *BetStore) ListByAccount(_ context.Context, accountID string, opts domain.ListOpts) ([]domain.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Bet
	for _, b := range s.bets {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	sortBets(out)
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *BetStore) Settle(_ context.Context, id string, status domain.BetStatus, payout int64, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = status
	b.Payout = payout
	b.SettledAt = &settledAt
	s.bets[id] = b
	return nil
}

// EventStore keeps an append-only slice with a monotonically increasing
// sequence, matching the bigserial behavior of the postgres store.
type EventStore struct {
	mu     sync.RWMutex
	events []domain.Event
	seq    int64
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Append(_ context.Context, e domain.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.Seq = s.seq
	s.events = append(s.events, e)
	return e.Seq, nil
}

func (s *EventStore) ListByPool(_ context.Context, poolID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.PoolID == poolID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EventStore) ListSince(_ context.Context, seq int64, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.Seq > seq {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func sortBets(bets []domain.Bet) {
	sort.Slice(bets, func(i, j int) bool {
		if bets[i].PlacedAt.Equal(bets[j].PlacedAt) {
			return bets[i].ID < bets[j].ID
		}
		return bets[i].PlacedAt.Before(bets[j].PlacedAt)
	})
}

func page(ids []string, opts domain.ListOpts) []string {
	if opts.Offset > 0 {
		if opts.Offset >= len(ids) {
			return nil
		}
		ids = ids[opts.Offset:]
	}
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}
	return ids
}
