package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolSide names one of the two sides of a pool.
type PoolSide string

const (
	SideA PoolSide = "a"
	SideB PoolSide = "b"
)

// Valid reports whether the side is one of the two known sides.
func (s PoolSide) Valid() bool {
	return s == SideA || s == SideB
}

// Opposite returns the other side.
func (s PoolSide) Opposite() PoolSide {
	if s == SideA {
		return SideB
	}
	return SideA
}

// BetType classifies what a pool is wagering on. The type selects the house
// liquidity seed and whether a drawn match is a valid outcome.
type BetType string

const (
	BetTypeHeadToHead      BetType = "head_to_head"
	BetTypeFirstBlood      BetType = "first_blood"
	BetTypeFlawlessVictory BetType = "flawless_victory"
)

// AllowsDraw reports whether a drawn match resolves this bet type. None of
// the shipped two-sided types support draws; a draw voids the pool.
func (bt BetType) AllowsDraw() bool {
	return false
}

// PoolStatus tracks the pool lifecycle. A pool transitions
// active -> closed exactly once, then closed -> resolving -> resolved, or
// closed -> void.
type PoolStatus string

const (
	PoolStatusActive    PoolStatus = "active"
	PoolStatusClosed    PoolStatus = "closed"
	PoolStatusResolving PoolStatus = "resolving"
	PoolStatusResolved  PoolStatus = "resolved"
	PoolStatusVoid      PoolStatus = "void"
)

// Pool is a two-sided wagering market tied to one match. Stake totals are
// authoritative; odds are always recomputed from stakes, liquidity, and
// sentiment, never stored.
type Pool struct {
	ID      string
	MatchID string
	ArenaID string
	BetType BetType

	// Fighter names for display; bets reference sides, not names.
	FighterA string
	FighterB string

	StakeA         int64 // minor units
	StakeB         int64
	HouseLiquidity int64

	Status       PoolStatus
	Participants int
	ViralScore   float64

	WinningSide *PoolSide
	VoidReason  string

	OpenedAt   time.Time
	ClosedAt   *time.Time
	ResolvedAt *time.Time
}

// TotalStaked returns the bettor-contributed stake across both sides.
func (p Pool) TotalStaked() int64 {
	return p.StakeA + p.StakeB
}

// TotalValue returns everything the pool can pay out: both stakes plus the
// house liquidity contribution.
func (p Pool) TotalValue() int64 {
	return p.StakeA + p.StakeB + p.HouseLiquidity
}

// Stake returns the aggregate stake on the given side.
func (p Pool) Stake(side PoolSide) int64 {
	if side == SideA {
		return p.StakeA
	}
	return p.StakeB
}

// OddsPair is a snapshot of the live odds for both sides.
type OddsPair struct {
	SideA decimal.Decimal
	SideB decimal.Decimal
}

// Odds returns the multiplier for the given side.
func (o OddsPair) Odds(side PoolSide) decimal.Decimal {
	if side == SideA {
		return o.SideA
	}
	return o.SideB
}

// PoolSummary is the read-only view exposed to UI and chat collaborators.
type PoolSummary struct {
	ID           string     `json:"id"`
	MatchID      string     `json:"match_id"`
	BetType      BetType    `json:"bet_type"`
	FighterA     string     `json:"fighter_a"`
	FighterB     string     `json:"fighter_b"`
	StakeA       int64      `json:"stake_a"`
	StakeB       int64      `json:"stake_b"`
	Liquidity    int64      `json:"liquidity"`
	OddsA        string     `json:"odds_a"`
	OddsB        string     `json:"odds_b"`
	Status       PoolStatus `json:"status"`
	Participants int        `json:"participants"`
	ViralScore   float64    `json:"viral_score"`
	OpenedAt     time.Time  `json:"opened_at"`
}
