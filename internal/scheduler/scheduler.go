// Package scheduler drives the arena cycle through its four phases:
// intermission, betting, fighting, resolution. It owns the phase state and
// is the only component that creates pools, closes them, starts matches,
// and invokes settlement.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/market"
	"github.com/colosseo/arenabook/internal/settlement"
)

// MatchRunner is the external combat collaborator. Run blocks until the
// match completes or ctx expires; the scheduler bounds it with the fight
// timeout and treats an error or timeout as a draw.
type MatchRunner interface {
	Run(ctx context.Context, m domain.Matchup) (domain.MatchOutcome, error)
}

// Matchmaker selects the fighters for the next cycle. Pairing policy lives
// entirely behind this interface.
type Matchmaker interface {
	Next(ctx context.Context) (domain.Matchup, error)
}

// Archiver exports a settled pool to cold storage after resolution.
type Archiver interface {
	ArchivePool(ctx context.Context, poolID string) error
}

// Config holds phase durations. Intermission, betting, and resolution are
// strict time boxes; FightTimeout is the soft bound after which a match is
// force-terminated as a draw.
type Config struct {
	Intermission time.Duration
	Betting      time.Duration
	Resolution   time.Duration
	FightTimeout time.Duration
	ArenaID      string
	BetType      domain.BetType
}

// Scheduler cycles through phases indefinitely.
type Scheduler struct {
	market    *market.Manager
	settle    *settlement.Engine
	combat    MatchRunner
	matchmake Matchmaker
	archiver  Archiver // optional
	events    domain.EventStore
	bus       domain.SignalBus
	clock     Clock
	cfg       Config
	logger    *slog.Logger

	mu    sync.RWMutex
	state domain.PhaseState
}

// New creates a Scheduler. archiver may be nil.
func New(
	mkt *market.Manager,
	settle *settlement.Engine,
	combat MatchRunner,
	matchmake Matchmaker,
	archiver Archiver,
	events domain.EventStore,
	bus domain.SignalBus,
	cfg Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		market:    mkt,
		settle:    settle,
		combat:    combat,
		matchmake: matchmake,
		archiver:  archiver,
		events:    events,
		bus:       bus,
		clock:     realClock{},
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// WithClock swaps the time source; tests inject a fast clock here.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// State returns the current phase snapshot.
func (s *Scheduler) State() domain.PhaseState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Run cycles phases until ctx is cancelled. If cancellation lands during
// the betting phase, the active pool is voided before returning so no
// stake is stranded in escrow.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting",
		slog.Duration("intermission", s.cfg.Intermission),
		slog.Duration("betting", s.cfg.Betting),
		slog.Duration("fight_timeout", s.cfg.FightTimeout),
		slog.Duration("resolution", s.cfg.Resolution),
	)

	for cycle := int64(1); ; cycle++ {
		if err := s.runCycle(ctx, cycle); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("scheduler stopped")
				return ctx.Err()
			}
			// A failed cycle is logged and the arena moves on; the engine
			// halt handles the fatal cases.
			s.logger.Error("cycle failed",
				slog.Int64("cycle", cycle),
				slog.String("error", err.Error()),
			)
		}
	}
}

// runCycle executes one full intermission -> betting -> fighting ->
// resolution pass.
func (s *Scheduler) runCycle(ctx context.Context, cycle int64) error {
	s.enterPhase(ctx, domain.PhaseIntermission, s.cfg.Intermission, "", "", cycle)
	if err := s.wait(ctx, s.cfg.Intermission); err != nil {
		return err
	}

	matchup, err := s.matchmake.Next(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: matchmaker: %w", err)
	}
	matchup.ArenaID = s.cfg.ArenaID

	pool, err := s.market.CreatePool(ctx, matchup, s.cfg.BetType)
	if err != nil {
		if errors.Is(err, domain.ErrEngineHalted) {
			// Idle through the halt; the operator resumes the engine.
			s.logger.Warn("engine halted, skipping cycle", slog.Int64("cycle", cycle))
			return s.wait(ctx, s.cfg.Intermission)
		}
		return err
	}

	s.enterPhase(ctx, domain.PhaseBetting, s.cfg.Betting, pool.ID, matchup.MatchID, cycle)
	if err := s.wait(ctx, s.cfg.Betting); err != nil {
		// Shutdown mid-betting: void so every stake goes home.
		if vErr := s.settle.VoidPool(context.WithoutCancel(ctx), pool.ID, "scheduler shutdown"); vErr != nil {
			s.logger.Error("shutdown void failed",
				slog.String("pool", pool.ID),
				slog.String("error", vErr.Error()),
			)
		}
		return err
	}

	if err := s.market.ClosePool(ctx, pool.ID); err != nil {
		// A pool that cannot close must not fight: void it so stakes go
		// home instead of sitting in escrow with no path to settlement.
		if vErr := s.settle.VoidPool(context.WithoutCancel(ctx), pool.ID, "pool close failed"); vErr != nil {
			s.logger.Error("close-failure void failed",
				slog.String("pool", pool.ID),
				slog.String("error", vErr.Error()),
			)
		}
		return err
	}

	s.enterPhase(ctx, domain.PhaseFighting, s.cfg.FightTimeout, pool.ID, matchup.MatchID, cycle)
	outcome := s.runFight(ctx, matchup)
	if ctx.Err() != nil {
		// Shutdown mid-fight: settle as a draw so bets are refunded.
		if vErr := s.settle.ResolvePool(context.WithoutCancel(ctx), pool.ID, outcome); vErr != nil {
			s.logger.Error("shutdown settlement failed",
				slog.String("pool", pool.ID),
				slog.String("error", vErr.Error()),
			)
		}
		return ctx.Err()
	}

	s.enterPhase(ctx, domain.PhaseResolution, s.cfg.Resolution, pool.ID, matchup.MatchID, cycle)
	if err := s.settle.ResolvePool(ctx, pool.ID, outcome); err != nil {
		s.logger.Error("settlement failed",
			slog.String("pool", pool.ID),
			slog.String("error", err.Error()),
		)
	} else if s.archiver != nil {
		if err := s.archiver.ArchivePool(ctx, pool.ID); err != nil {
			s.logger.Warn("pool archive failed",
				slog.String("pool", pool.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.wait(ctx, s.cfg.Resolution)
}

// runFight delegates to the combat collaborator under the fight timeout.
// Exceeding the bound, or any runner error, force-terminates the match as
// a draw so the cycle never stalls.
func (s *Scheduler) runFight(ctx context.Context, matchup domain.Matchup) domain.MatchOutcome {
	fightCtx, cancel := context.WithTimeout(ctx, s.cfg.FightTimeout)
	defer cancel()

	outcome, err := s.combat.Run(fightCtx, matchup)
	if err != nil {
		s.logger.Warn("match force-terminated as draw",
			slog.String("match", matchup.MatchID),
			slog.String("error", err.Error()),
		)
		return domain.MatchOutcome{MatchID: matchup.MatchID}
	}
	return outcome
}

// wait blocks for the phase duration or until ctx is cancelled.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	t := s.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// enterPhase swaps the phase state and publishes the transition.
func (s *Scheduler) enterPhase(ctx context.Context, phase domain.Phase, d time.Duration, poolID, matchID string, cycle int64) {
	now := s.clock.Now()
	state := domain.PhaseState{
		Phase:     phase,
		EnteredAt: now,
		Deadline:  now.Add(d),
		PoolID:    poolID,
		MatchID:   matchID,
		Cycle:     cycle,
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Info("phase changed",
		slog.String("phase", string(phase)),
		slog.Int64("cycle", cycle),
		slog.Time("deadline", state.Deadline),
	)

	e := domain.Event{
		Type:   domain.EventPhaseChanged,
		PoolID: poolID,
		Detail: map[string]any{
			"phase":    string(phase),
			"deadline": state.Deadline,
			"cycle":    cycle,
			"match_id": matchID,
		},
		CreatedAt: now,
	}
	seq, err := s.events.Append(ctx, e)
	if err != nil {
		s.logger.Error("event log append failed", slog.String("error", err.Error()))
	}
	e.Seq = seq

	if s.bus != nil {
		if err := s.bus.Publish(ctx, domain.EventChannel(domain.EventPhaseChanged), e.Encode()); err != nil {
			s.logger.Warn("phase event publish failed", slog.String("error", err.Error()))
		}
	}
}
