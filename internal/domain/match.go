package domain

import "time"

// Matchup identifies the two fighters chosen for one cycle.
type Matchup struct {
	MatchID  string
	ArenaID  string
	FighterA string
	FighterB string
}

// MatchOutcome is what the combat collaborator reports when a match ends.
// A nil Winner means the match was drawn or indeterminate.
type MatchOutcome struct {
	MatchID  string
	Winner   *PoolSide
	Rounds   int
	Duration time.Duration

	// LoserVitality is the losing fighter's remaining vitality, informational
	// for flavor and stats only.
	LoserVitality int
}

// WinnerSide is a convenience constructor for a decisive outcome.
func WinnerSide(s PoolSide) *PoolSide {
	return &s
}
