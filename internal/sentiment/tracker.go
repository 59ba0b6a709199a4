// Package sentiment maintains the per-arena crowd-bias signal derived from
// bet flow. Bet execution is its only writer; pricing reads the bias, and
// everything else is informational.
package sentiment

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
)

// Config holds tracker parameters.
type Config struct {
	// WindowSize bounds the rolling window of recent bet samples per arena.
	// Old samples fall out, which is how the signal decays.
	WindowSize int
	// IntensityScale normalizes mean absolute sample weight into [0,1].
	IntensityScale float64
}

// DefaultConfig returns the standard tracker parameters.
func DefaultConfig() Config {
	return Config{WindowSize: 50, IntensityScale: 5}
}

// Tracker tracks sentiment for every arena.
type Tracker struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	arenas map[string]*arenaState
}

// arenaState is the rolling window plus derived aggregates for one arena.
// Samples are signed weights: positive favors side A.
type arenaState struct {
	samples []float64
	next    int
	updated time.Time
}

// New creates a Tracker.
func New(cfg Config, logger *slog.Logger) *Tracker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 50
	}
	if cfg.IntensityScale <= 0 {
		cfg.IntensityScale = 5
	}
	return &Tracker{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sentiment")),
		arenas: make(map[string]*arenaState),
	}
}

// Record folds one accepted bet into the arena's window. The sample weight
// is logarithmic in bet size scaled by the account's influence, signed by
// the chosen side.
func (t *Tracker) Record(arenaID string, side domain.PoolSide, amount int64, influence float64) {
	w := sampleWeight(amount, influence)
	if side == domain.SideB {
		w = -w
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.arenas[arenaID]
	if !ok {
		st = &arenaState{samples: make([]float64, 0, t.cfg.WindowSize)}
		t.arenas[arenaID] = st
	}

	if len(st.samples) < t.cfg.WindowSize {
		st.samples = append(st.samples, w)
	} else {
		st.samples[st.next] = w
	}
	st.next = (st.next + 1) % t.cfg.WindowSize
	st.updated = time.Now().UTC()
}

// sampleWeight is log-weighted in whole tokens and scaled by influence so a
// trusted account moves the crowd more than a fresh one.
func sampleWeight(amount int64, influence float64) float64 {
	tokens := float64(amount) / float64(domain.AmountScale)
	if tokens < 0 {
		tokens = 0
	}
	return math.Log1p(tokens) * (0.5 + influence)
}

// Bias returns the arena's crowd bias in [0,1]; 0.5 when unknown or
// balanced, above 0.5 when the crowd favors side A.
func (t *Tracker) Bias(arenaID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.arenas[arenaID]
	if !ok || len(st.samples) == 0 {
		return 0.5
	}
	return biasOf(st.samples)
}

// biasOf squashes the mean signed weight through tanh so extreme one-sided
// flow saturates instead of pinning the bias at a boundary.
func biasOf(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	return 0.5 + math.Tanh(mean)/2
}

// Snapshot returns the full sentiment view for an arena.
func (t *Tracker) Snapshot(arenaID string) domain.Sentiment {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := domain.Sentiment{ArenaID: arenaID, Bias: 0.5}
	st, ok := t.arenas[arenaID]
	if !ok || len(st.samples) == 0 {
		return s
	}

	var wf welford
	var sumAbs float64
	for _, x := range st.samples {
		wf.add(x)
		sumAbs += math.Abs(x)
	}

	s.Bias = biasOf(st.samples)
	s.Intensity = clamp01(sumAbs / float64(len(st.samples)) / t.cfg.IntensityScale)
	s.Volatility = wf.stddev()
	s.Samples = len(st.samples)
	s.UpdatedAt = st.updated
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
