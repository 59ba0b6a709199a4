// Package viral watches bet flow for anomalous wagers. Each accepted bet is
// scored; scores accumulate on the pool, and crossing the threshold pays a
// one-time bonus to the triggering account plus a liquidity boost to the
// pool, after which the score resets so repeated triggers need fresh
// accumulation.
package viral

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/market"
	"github.com/colosseo/arenabook/internal/notify"
)

// Input is everything a scorer may inspect for one bet. The pool snapshot
// is the state immediately after the bet was applied.
type Input struct {
	Bet       domain.Bet
	Pool      domain.Pool
	Influence float64
}

// ScoreFunc scores one bet for anomaly. Scores are additive; the shipped
// scorers each contribute [0,1] per bet.
type ScoreFunc func(in Input) float64

// Config holds detector parameters.
type Config struct {
	// Threshold is the accumulated score that triggers a viral event.
	Threshold float64
	// Bonus is minted into the triggering account.
	Bonus int64
	// LiquidityBoost is moved from the house into the pool on trigger.
	LiquidityBoost int64

	// Scorer knobs.
	LargeBet     int64           // a bet of this size scores 1.0 on size
	ExtremeOdds  decimal.Decimal // frozen odds at/above this score 1.0 on odds
	MinInfluence float64         // influence at/above this scores on influence
}

// DefaultConfig returns the standard detector heuristics.
func DefaultConfig() Config {
	return Config{
		Threshold:      5,
		Bonus:          domain.Tokens(50),
		LiquidityBoost: domain.Tokens(200),
		LargeBet:       domain.Tokens(500),
		ExtremeOdds:    decimal.NewFromFloat(5.0),
		MinInfluence:   0.8,
	}
}

// Detector scores bets and fires viral events.
type Detector struct {
	cfg      Config
	scorers  []ScoreFunc
	ledger   *ledger.Ledger
	market   *market.Manager
	events   domain.EventStore
	bus      domain.SignalBus
	notifier *notify.Notifier // optional
	logger   *slog.Logger
}

// New creates a Detector with the default scorer set. notifier may be nil.
func New(
	cfg Config,
	led *ledger.Ledger,
	mkt *market.Manager,
	events domain.EventStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Detector {
	d := &Detector{
		cfg:      cfg,
		ledger:   led,
		market:   mkt,
		events:   events,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "viral")),
	}
	d.scorers = []ScoreFunc{
		d.sizeScore,
		d.oddsScore,
		d.influenceScore,
		d.impactScore,
	}
	return d
}

// WithScorers replaces the scorer set; used to plug alternative heuristics.
func (d *Detector) WithScorers(scorers ...ScoreFunc) *Detector {
	d.scorers = scorers
	return d
}

// Score runs every scorer over one bet and returns the total.
func (d *Detector) Score(in Input) float64 {
	var total float64
	for _, f := range d.scorers {
		total += f(in)
	}
	return total
}

// Observe scores one accepted bet, accumulates on the pool, and fires the
// viral event when the threshold is crossed. It reports whether a trigger
// occurred. Observe never fails the bet that invoked it; errors here are
// logged and swallowed by the caller.
func (d *Detector) Observe(ctx context.Context, in Input) (bool, error) {
	score := d.Score(in)
	if score <= 0 {
		return false, nil
	}

	total, triggered, err := d.market.AddViralScore(ctx, in.Pool.ID, score, d.cfg.Threshold)
	if err != nil {
		return false, fmt.Errorf("viral: accumulate score: %w", err)
	}
	if !triggered {
		return false, nil
	}

	d.logger.Info("viral event triggered",
		slog.String("pool", in.Pool.ID),
		slog.String("account", in.Bet.AccountID),
		slog.Float64("score", total),
	)

	if d.cfg.Bonus > 0 {
		if err := d.ledger.Bonus(ctx, in.Bet.AccountID, d.cfg.Bonus); err != nil {
			d.logger.Error("viral bonus credit failed",
				slog.String("account", in.Bet.AccountID),
				slog.String("error", err.Error()),
			)
		}
	}

	boosted := int64(0)
	if d.cfg.LiquidityBoost > 0 {
		var err error
		boosted, err = d.market.BoostLiquidity(ctx, in.Pool.ID, d.cfg.LiquidityBoost)
		if err != nil {
			d.logger.Error("viral liquidity boost failed",
				slog.String("pool", in.Pool.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	d.emit(ctx, in, total, boosted)

	if d.notifier != nil {
		title := "Viral bet detected"
		msg := fmt.Sprintf("pool %s: account %s triggered a viral event (score %.2f, bonus %d, boost %d)",
			in.Pool.ID, in.Bet.AccountID, total, d.cfg.Bonus, boosted)
		if err := d.notifier.Notify(ctx, string(domain.EventViral), title, msg); err != nil {
			d.logger.Warn("viral notification failed", slog.String("error", err.Error()))
		}
	}
	return true, nil
}

func (d *Detector) emit(ctx context.Context, in Input, score float64, boosted int64) {
	e := domain.Event{
		Type:   domain.EventViral,
		PoolID: in.Pool.ID,
		Detail: map[string]any{
			"account": in.Bet.AccountID,
			"bet_id":  in.Bet.ID,
			"score":   score,
			"bonus":   d.cfg.Bonus,
			"boost":   boosted,
		},
		CreatedAt: time.Now().UTC(),
	}
	seq, err := d.events.Append(ctx, e)
	if err != nil {
		d.logger.Error("viral event log append failed", slog.String("error", err.Error()))
	}
	e.Seq = seq

	if d.bus != nil {
		if err := d.bus.Publish(ctx, domain.EventChannel(domain.EventViral), e.Encode()); err != nil {
			d.logger.Warn("viral event publish failed", slog.String("error", err.Error()))
		}
	}
}

// sizeScore scales linearly with bet size up to LargeBet, capped at 1.
func (d *Detector) sizeScore(in Input) float64 {
	if d.cfg.LargeBet <= 0 {
		return 0
	}
	s := float64(in.Bet.Amount) / float64(d.cfg.LargeBet)
	if s > 1 {
		s = 1
	}
	return s
}

// oddsScore rewards longshot bets at extreme frozen odds.
func (d *Detector) oddsScore(in Input) float64 {
	if in.Bet.Odds.GreaterThanOrEqual(d.cfg.ExtremeOdds) {
		return 1
	}
	return 0
}

// influenceScore flags bets from highly trusted accounts.
func (d *Detector) influenceScore(in Input) float64 {
	if in.Influence >= d.cfg.MinInfluence {
		return 1
	}
	return 0
}

// impactScore measures how much of the pool this single bet represents.
func (d *Detector) impactScore(in Input) float64 {
	total := in.Pool.TotalValue()
	if total <= 0 {
		return 0
	}
	s := float64(in.Bet.Amount) / float64(total)
	if s > 1 {
		s = 1
	}
	return s
}
