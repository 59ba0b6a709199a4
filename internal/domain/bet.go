package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus tracks the bet lifecycle. A bet is settled exactly once, when
// its pool resolves.
type BetStatus string

const (
	BetStatusActive BetStatus = "active"
	BetStatusWon    BetStatus = "won"
	BetStatusLost   BetStatus = "lost"
	BetStatusVoid   BetStatus = "void"
)

// Bet is a single accepted wager. Odds are frozen at acceptance time and
// never change afterwards, even though the pool's live odds keep moving for
// subsequent bets.
type Bet struct {
	ID        string
	AccountID string
	PoolID    string
	Side      PoolSide
	Amount    int64           // minor units
	Odds      decimal.Decimal // frozen at acceptance, 2dp
	Potential int64           // Amount * Odds, truncated to minor units
	Status    BetStatus
	Payout    int64 // actual credited amount after settlement
	PlacedAt  time.Time
	SettledAt *time.Time
}

// PotentialPayout computes the payout a stake would earn at the given odds,
// truncated toward zero. Used both to derive Bet.Potential at placement and
// to compute the actual payout at settlement.
func PotentialPayout(amount int64, odds decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(odds).IntPart()
}
