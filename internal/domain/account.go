package domain

import "time"

// AmountScale is the fixed-point scale for token amounts: 1 token is
// 1,000,000 minor units. All balances, stakes, and payouts are int64 minor
// units so arithmetic never drifts.
const AmountScale int64 = 1_000_000

// Reserved ledger accounts. The house account funds liquidity seeds and
// collects the edge; the escrow account holds every staked token between
// bet placement and settlement so the conservation identity holds at all
// observation points.
const (
	HouseAccountID  = "house"
	EscrowAccountID = "escrow"
)

// Tokens converts a whole-token count to minor units.
func Tokens(n int64) int64 {
	return n * AmountScale
}

// Account is a token ledger account. Only the ledger mutates Balance; every
// other component requests debits and credits through it. Accounts are
// created lazily on first reference and never deleted.
type Account struct {
	ID      string
	Balance int64 // minor units, never negative

	// Lifetime totals, for stats and reconciliation.
	LifetimeEarned int64
	LifetimeSpent  int64

	// Granted is the sum of initial grants minted into this account;
	// BonusEarned is the sum of viral bonuses minted into it. Both feed the
	// conservation check: sum(balances) == sum(granted) + sum(bonuses).
	Granted     int64
	BonusEarned int64

	// Influence is a trust weight in [0,1] grown by betting history. It
	// feeds sentiment weighting and viral scoring, never pricing directly.
	Influence float64
	BetCount  int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reconciliation is the result of the ledger conservation check.
type Reconciliation struct {
	TotalBalances int64 // sum over every account, house and escrow included
	TotalGranted  int64
	TotalBonuses  int64
	Delta         int64 // TotalBalances - (TotalGranted + TotalBonuses)
	Accounts      int64
	CheckedAt     time.Time
}

// Balanced reports whether the conservation identity holds exactly.
func (r Reconciliation) Balanced() bool {
	return r.Delta == 0
}
