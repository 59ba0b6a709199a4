package domain

import "time"

// Phase is one of the four scheduler states governing when pools accept
// bets versus when matches run.
type Phase string

const (
	PhaseIntermission Phase = "intermission"
	PhaseBetting      Phase = "betting"
	PhaseFighting     Phase = "fighting"
	PhaseResolution   Phase = "resolution"
)

// PhaseState is the scheduler's view of the current cycle. Exactly one
// instance exists process-wide; only the scheduler mutates it.
type PhaseState struct {
	Phase     Phase     `json:"phase"`
	EnteredAt time.Time `json:"entered_at"`
	Deadline  time.Time `json:"deadline"`
	PoolID    string    `json:"pool_id,omitempty"`
	MatchID   string    `json:"match_id,omitempty"`
	Cycle     int64     `json:"cycle"`
}
