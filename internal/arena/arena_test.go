package arena

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/domain"
)

func TestRosterPairsNeighbors(t *testing.T) {
	r, err := NewRoster("colosseum-1", []string{"Maximus", "Commodus", "Spartacus", "Crixus"})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Maximus", first.FighterA)
	assert.Equal(t, "Commodus", first.FighterB)
	assert.Equal(t, "colosseum-1", first.ArenaID)
	assert.NotEmpty(t, first.MatchID)

	second, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Spartacus", second.FighterA)
	assert.Equal(t, "Crixus", second.FighterB)
	assert.NotEqual(t, first.MatchID, second.MatchID)

	// The rotation wraps around.
	third, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Maximus", third.FighterA)
}

func TestRosterOddSizedRotation(t *testing.T) {
	r, err := NewRoster("colosseum-1", []string{"a", "b", "c"})
	require.NoError(t, err)

	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		m, err := r.Next(ctx)
		require.NoError(t, err)
		seen[m.FighterA] = true
		seen[m.FighterB] = true
	}
	// With an odd roster every fighter appears within a few pairings.
	assert.Len(t, seen, 3)
}

func TestRosterTooSmall(t *testing.T) {
	_, err := NewRoster("colosseum-1", []string{"alone"})
	assert.Error(t, err)
}

func TestSimRunnerProducesOutcome(t *testing.T) {
	s := NewSimRunner(0)
	s.DrawChance = 0 // only a vitality tie can draw now

	outcome, err := s.Run(context.Background(), domain.Matchup{
		MatchID:  "match-1",
		ArenaID:  "colosseum-1",
		FighterA: "Maximus",
		FighterB: "Commodus",
	})
	require.NoError(t, err)
	assert.Equal(t, "match-1", outcome.MatchID)
	assert.NotZero(t, outcome.Rounds)
	assert.LessOrEqual(t, outcome.Rounds, s.MaxRounds)
	if outcome.Winner != nil {
		assert.LessOrEqual(t, outcome.LoserVitality, 100)
		assert.GreaterOrEqual(t, outcome.LoserVitality, 0)
	}
}

func TestSimRunnerHonorsCancellation(t *testing.T) {
	s := NewSimRunner(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, domain.Matchup{MatchID: "match-1"})
	assert.ErrorIs(t, err, context.Canceled)
}
