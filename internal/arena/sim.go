package arena

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
)

// SimRunner is a stand-in combat collaborator that resolves matches with
// random round-by-round attrition. It exists so standalone mode has a full
// cycle to drive; it is not a combat engine.
type SimRunner struct {
	// RoundDelay paces the simulation so the fighting phase is observable.
	RoundDelay time.Duration
	// MaxRounds caps the simulation; hitting the cap is a draw.
	MaxRounds int
	// DrawChance is the probability of a drawn match, in [0,1].
	DrawChance float64
}

// NewSimRunner returns a simulator with sensible demo pacing.
func NewSimRunner(roundDelay time.Duration) *SimRunner {
	return &SimRunner{
		RoundDelay: roundDelay,
		MaxRounds:  10,
		DrawChance: 0.05,
	}
}

// Run simulates a match. It honors ctx cancellation between rounds,
// returning ctx.Err() so the scheduler's forced-draw path engages.
func (s *SimRunner) Run(ctx context.Context, m domain.Matchup) (domain.MatchOutcome, error) {
	start := time.Now()
	vitalityA, vitalityB := 100, 100

	rounds := 0
	for rounds < s.MaxRounds && vitalityA > 0 && vitalityB > 0 {
		if s.RoundDelay > 0 {
			select {
			case <-ctx.Done():
				return domain.MatchOutcome{MatchID: m.MatchID}, ctx.Err()
			case <-time.After(s.RoundDelay):
			}
		}
		vitalityA -= rand.IntN(30)
		vitalityB -= rand.IntN(30)
		rounds++
	}

	outcome := domain.MatchOutcome{
		MatchID:  m.MatchID,
		Rounds:   rounds,
		Duration: time.Since(start),
	}

	if rand.Float64() < s.DrawChance || vitalityA == vitalityB {
		return outcome, nil // drawn: Winner stays nil
	}

	if vitalityA > vitalityB {
		outcome.Winner = domain.WinnerSide(domain.SideA)
		outcome.LoserVitality = max(vitalityB, 0)
	} else {
		outcome.Winner = domain.WinnerSide(domain.SideB)
		outcome.LoserVitality = max(vitalityA, 0)
	}
	return outcome, nil
}
