package domain

import "errors"

var (
	// ErrNotFound is returned by stores and caches when a key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating an entity that exists, or
	// settling a pool that has already been settled.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation covers malformed input: unknown side, amount out of
	// bounds, bad bet type.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance is returned by the ledger when a debit exceeds
	// the account balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPoolClosed is returned for any bet arriving after the pool left the
	// active state, including bets in flight when it closed.
	ErrPoolClosed = errors.New("pool closed")

	// ErrOddsSlippage is returned when the live odds no longer satisfy the
	// caller's max-odds bound.
	ErrOddsSlippage = errors.New("odds slippage")

	// ErrSettlementIndeterminate marks an outcome the pool's bet type cannot
	// resolve; the pool is voided and stakes refunded.
	ErrSettlementIndeterminate = errors.New("settlement indeterminate")

	// ErrLedgerInvariant is fatal: token conservation or the payout bound was
	// violated. The engine halts new pools and bets until an operator
	// reconciles; resolved state is never rolled back.
	ErrLedgerInvariant = errors.New("ledger invariant violation")

	// ErrEngineHalted is returned for new pools and bets while the engine is
	// halted after an invariant violation.
	ErrEngineHalted = errors.New("engine halted")

	// ErrRateLimited is returned when a request exceeds its rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrLockHeld is returned when a distributed lock is already held.
	ErrLockHeld = errors.New("lock already held")
)
