// Package ledger owns every token balance in the arena. It is the only
// component permitted to mutate balances; pools, bets, bonuses, and
// market-making all move tokens through it.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
)

// Config holds ledger parameters.
type Config struct {
	// InitialGrant is minted into every account on first reference.
	InitialGrant int64
	// HouseFloat is minted into the house account at bootstrap.
	HouseFloat int64
	// MaxAccountBalance is the per-account sanity bound; a credit that would
	// exceed it is treated as an invariant violation.
	MaxAccountBalance int64
}

// Ledger implements the token ledger. Each account mutation is an atomic
// read-modify-write under that account's lock; cross-account transfers are
// two such operations with the first rolled back if the second fails.
type Ledger struct {
	store  domain.AccountStore
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	halted     atomic.Bool
	haltMu     sync.Mutex
	haltReason string
}

// New creates a Ledger over the given account store.
func New(store domain.AccountStore, cfg Config, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ledger")),
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one account, creating it on first use.
// Account locks are never removed; the set of accounts only grows.
func (l *Ledger) lockFor(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Bootstrap ensures the house and escrow accounts exist. The house float is
// minted exactly once, on first creation.
func (l *Ledger) Bootstrap(ctx context.Context) error {
	if _, err := l.createIfMissing(ctx, domain.HouseAccountID, l.cfg.HouseFloat); err != nil {
		return fmt.Errorf("ledger: bootstrap house: %w", err)
	}
	if _, err := l.createIfMissing(ctx, domain.EscrowAccountID, 0); err != nil {
		return fmt.Errorf("ledger: bootstrap escrow: %w", err)
	}
	return nil
}

// CreateAccount creates an account with the configured initial grant. It
// returns domain.ErrAlreadyExists if the account exists.
func (l *Ledger) CreateAccount(ctx context.Context, id string) (domain.Account, error) {
	if l.Halted() {
		return domain.Account{}, domain.ErrEngineHalted
	}
	if id == "" {
		return domain.Account{}, fmt.Errorf("ledger: empty account id: %w", domain.ErrValidation)
	}

	lk := l.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	if _, err := l.store.Get(ctx, id); err == nil {
		return domain.Account{}, domain.ErrAlreadyExists
	}

	now := time.Now().UTC()
	acct := domain.Account{
		ID:        id,
		Balance:   l.cfg.InitialGrant,
		Granted:   l.cfg.InitialGrant,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.Create(ctx, acct); err != nil {
		return domain.Account{}, fmt.Errorf("ledger: create account %s: %w", id, err)
	}

	l.logger.Info("account created",
		slog.String("account", id),
		slog.Int64("grant", l.cfg.InitialGrant),
	)
	return acct, nil
}

// GetOrCreate returns an account, lazily creating it with the initial grant
// on first reference.
func (l *Ledger) GetOrCreate(ctx context.Context, id string) (domain.Account, error) {
	acct, err := l.store.Get(ctx, id)
	if err == nil {
		return acct, nil
	}
	acct, err = l.CreateAccount(ctx, id)
	if err == domain.ErrAlreadyExists {
		return l.store.Get(ctx, id)
	}
	return acct, err
}

// Get returns an account without creating it.
func (l *Ledger) Get(ctx context.Context, id string) (domain.Account, error) {
	return l.store.Get(ctx, id)
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(ctx context.Context, id string) (int64, error) {
	acct, err := l.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Debit removes amount from an account. It fails with
// domain.ErrInsufficientBalance when the balance is lower than amount and
// applies nothing in that case.
func (l *Ledger) Debit(ctx context.Context, id string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: debit amount %d: %w", amount, domain.ErrValidation)
	}

	lk := l.lockFor(id)
	lk.Lock()
	defer lk.Unlock()
	return l.debitLocked(ctx, id, amount)
}

func (l *Ledger) debitLocked(ctx context.Context, id string, amount int64) error {
	acct, err := l.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger: debit %s: %w", id, err)
	}
	if acct.Balance < amount {
		return fmt.Errorf("ledger: debit %s amount %d balance %d: %w",
			id, amount, acct.Balance, domain.ErrInsufficientBalance)
	}

	acct.Balance -= amount
	acct.LifetimeSpent += amount
	acct.UpdatedAt = time.Now().UTC()
	if err := l.store.Update(ctx, acct); err != nil {
		return fmt.Errorf("ledger: debit %s: %w", id, err)
	}
	return nil
}

// Credit adds amount to an account. It always succeeds, bounded by the
// per-account supply sanity check; exceeding the bound halts the engine.
func (l *Ledger) Credit(ctx context.Context, id string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: credit amount %d: %w", amount, domain.ErrValidation)
	}

	lk := l.lockFor(id)
	lk.Lock()
	defer lk.Unlock()
	return l.creditLocked(ctx, id, amount, false)
}

func (l *Ledger) creditLocked(ctx context.Context, id string, amount int64, bonus bool) error {
	acct, err := l.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger: credit %s: %w", id, err)
	}
	if l.cfg.MaxAccountBalance > 0 && acct.Balance+amount > l.cfg.MaxAccountBalance {
		l.Halt(fmt.Sprintf("credit of %d would push account %s past supply bound", amount, id))
		return fmt.Errorf("ledger: credit %s amount %d: %w", id, amount, domain.ErrLedgerInvariant)
	}

	acct.Balance += amount
	acct.LifetimeEarned += amount
	if bonus {
		acct.BonusEarned += amount
	}
	acct.UpdatedAt = time.Now().UTC()
	if err := l.store.Update(ctx, acct); err != nil {
		return fmt.Errorf("ledger: credit %s: %w", id, err)
	}
	return nil
}

// Transfer atomically moves amount between two accounts: a debit of the
// source followed by a credit of the destination. If the credit fails the
// debit is rolled back before returning, so no partial transfer survives.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if from == to {
		return fmt.Errorf("ledger: transfer to self %s: %w", from, domain.ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("ledger: transfer amount %d: %w", amount, domain.ErrValidation)
	}

	// Lock both accounts in lexical order so concurrent transfers against
	// the same pair cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	lk1, lk2 := l.lockFor(first), l.lockFor(second)
	lk1.Lock()
	defer lk1.Unlock()
	lk2.Lock()
	defer lk2.Unlock()

	if err := l.debitLocked(ctx, from, amount); err != nil {
		return err
	}
	if err := l.creditLocked(ctx, to, amount, false); err != nil {
		// Roll back the debit. A rollback failure means the store itself is
		// broken; that is an invariant violation.
		if rbErr := l.creditLocked(ctx, from, amount, false); rbErr != nil {
			l.Halt(fmt.Sprintf("transfer rollback %s->%s failed: %v", from, to, rbErr))
			return fmt.Errorf("ledger: transfer rollback: %w", domain.ErrLedgerInvariant)
		}
		return err
	}
	return nil
}

// Bonus mints new tokens into an account as a viral-event award. Minted
// bonuses are tracked separately so the conservation identity still holds.
func (l *Ledger) Bonus(ctx context.Context, id string, amount int64) error {
	if l.Halted() {
		return domain.ErrEngineHalted
	}
	if amount <= 0 {
		return fmt.Errorf("ledger: bonus amount %d: %w", amount, domain.ErrValidation)
	}

	lk := l.lockFor(id)
	lk.Lock()
	defer lk.Unlock()
	return l.creditLocked(ctx, id, amount, true)
}

// GrowInfluence bumps an account's trust weight after a successful bet. The
// growth curve is logarithmic in bet count and capped at 1.
func (l *Ledger) GrowInfluence(ctx context.Context, id string) error {
	lk := l.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	acct, err := l.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger: grow influence %s: %w", id, err)
	}

	acct.BetCount++
	acct.Influence = influenceFor(acct.BetCount)
	acct.UpdatedAt = time.Now().UTC()
	if err := l.store.Update(ctx, acct); err != nil {
		return fmt.Errorf("ledger: grow influence %s: %w", id, err)
	}
	return nil
}

// influenceCurve controls how fast influence saturates: 0 at zero bets,
// ~0.5 at 10 bets, capped at 1.0 around 100 bets.
func influenceFor(betCount int64) float64 {
	inf := float64(betCount) / (float64(betCount) + 10)
	if inf > 1 {
		inf = 1
	}
	return inf
}

// Reconcile computes the conservation identity over every account:
// sum(balances) must equal sum(granted) + sum(bonuses). A non-zero delta
// halts the engine.
func (l *Ledger) Reconcile(ctx context.Context) (domain.Reconciliation, error) {
	rec := domain.Reconciliation{CheckedAt: time.Now().UTC()}

	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		accounts, err := l.store.List(ctx, domain.ListOpts{Limit: pageSize, Offset: offset})
		if err != nil {
			return rec, fmt.Errorf("ledger: reconcile: %w", err)
		}
		for _, a := range accounts {
			rec.TotalBalances += a.Balance
			rec.TotalGranted += a.Granted
			rec.TotalBonuses += a.BonusEarned
			rec.Accounts++
		}
		if len(accounts) < pageSize {
			break
		}
	}

	rec.Delta = rec.TotalBalances - (rec.TotalGranted + rec.TotalBonuses)
	if rec.Delta != 0 {
		l.Halt(fmt.Sprintf("conservation check failed, delta %d", rec.Delta))
		return rec, fmt.Errorf("ledger: reconcile delta %d: %w", rec.Delta, domain.ErrLedgerInvariant)
	}
	return rec, nil
}

// Halt stops new pool creation and new bets engine-wide. It is engaged on
// any invariant violation and cleared only by an operator via Resume.
func (l *Ledger) Halt(reason string) {
	l.haltMu.Lock()
	l.haltReason = reason
	l.haltMu.Unlock()

	if l.halted.CompareAndSwap(false, true) {
		l.logger.Error("ledger halted", slog.String("reason", reason))
	}
}

// Resume clears the halt after operator reconciliation.
func (l *Ledger) Resume() {
	if l.halted.CompareAndSwap(true, false) {
		l.haltMu.Lock()
		l.haltReason = ""
		l.haltMu.Unlock()
		l.logger.Warn("ledger resumed by operator")
	}
}

// Halted reports whether the engine is refusing new pools and bets.
func (l *Ledger) Halted() bool {
	return l.halted.Load()
}

// HaltReason returns the reason for the current halt, if any.
func (l *Ledger) HaltReason() string {
	l.haltMu.Lock()
	defer l.haltMu.Unlock()
	return l.haltReason
}

func (l *Ledger) createIfMissing(ctx context.Context, id string, grant int64) (domain.Account, error) {
	lk := l.lockFor(id)
	lk.Lock()
	defer lk.Unlock()

	if acct, err := l.store.Get(ctx, id); err == nil {
		return acct, nil
	}

	now := time.Now().UTC()
	acct := domain.Account{
		ID:        id,
		Balance:   grant,
		Granted:   grant,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.Create(ctx, acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}
