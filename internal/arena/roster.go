// Package arena provides the default collaborators the scheduler needs: a
// roster-based matchmaker and a simulated combat runner for standalone and
// development use. A real combat engine replaces the runner behind the same
// interface.
package arena

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/colosseo/arenabook/internal/domain"
)

// Roster cycles through a fixed fighter list, pairing neighbors. Pairing
// policy is deliberately simple; anything smarter lives behind the
// scheduler's Matchmaker interface.
type Roster struct {
	arenaID  string
	fighters []string

	mu   sync.Mutex
	next int
}

// NewRoster creates a roster matchmaker. At least two fighters are
// required.
func NewRoster(arenaID string, fighters []string) (*Roster, error) {
	if len(fighters) < 2 {
		return nil, fmt.Errorf("arena: roster needs at least 2 fighters, got %d", len(fighters))
	}
	return &Roster{arenaID: arenaID, fighters: fighters}, nil
}

// Next returns the next fighter pairing.
func (r *Roster) Next(ctx context.Context) (domain.Matchup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.fighters[r.next%len(r.fighters)]
	b := r.fighters[(r.next+1)%len(r.fighters)]
	r.next = (r.next + 2) % len(r.fighters)

	return domain.Matchup{
		MatchID:  uuid.New().String(),
		ArenaID:  r.arenaID,
		FighterA: a,
		FighterB: b,
	}, nil
}
