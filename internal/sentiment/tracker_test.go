package sentiment

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colosseo/arenabook/internal/domain"
)

func newTestTracker(cfg Config) *Tracker {
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBiasUnknownArena(t *testing.T) {
	tr := newTestTracker(DefaultConfig())
	assert.Equal(t, 0.5, tr.Bias("colosseum-1"))
}

func TestBiasFollowsFlow(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	for i := 0; i < 10; i++ {
		tr.Record("colosseum-1", domain.SideA, domain.Tokens(50), 0.5)
	}
	assert.Greater(t, tr.Bias("colosseum-1"), 0.5)

	// An unrelated arena is unaffected.
	assert.Equal(t, 0.5, tr.Bias("colosseum-2"))
}

func TestBiasBalancedFlow(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	for i := 0; i < 10; i++ {
		tr.Record("colosseum-1", domain.SideA, domain.Tokens(50), 0.5)
		tr.Record("colosseum-1", domain.SideB, domain.Tokens(50), 0.5)
	}
	assert.InDelta(t, 0.5, tr.Bias("colosseum-1"), 1e-9)
}

func TestBiasSaturates(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	for i := 0; i < 200; i++ {
		tr.Record("colosseum-1", domain.SideA, domain.Tokens(10_000), 1.0)
	}
	bias := tr.Bias("colosseum-1")
	assert.Greater(t, bias, 0.9)
	assert.LessOrEqual(t, bias, 1.0)
}

func TestInfluenceWeighsSamples(t *testing.T) {
	low := newTestTracker(DefaultConfig())
	high := newTestTracker(DefaultConfig())

	low.Record("colosseum-1", domain.SideA, domain.Tokens(50), 0.0)
	high.Record("colosseum-1", domain.SideA, domain.Tokens(50), 1.0)

	assert.Greater(t, high.Bias("colosseum-1"), low.Bias("colosseum-1"))
}

func TestWindowDecay(t *testing.T) {
	tr := newTestTracker(Config{WindowSize: 4, IntensityScale: 5})

	for i := 0; i < 4; i++ {
		tr.Record("colosseum-1", domain.SideA, domain.Tokens(100), 1.0)
	}
	before := tr.Bias("colosseum-1")
	assert.Greater(t, before, 0.5)

	// New side-B flow overwrites the whole window.
	for i := 0; i < 4; i++ {
		tr.Record("colosseum-1", domain.SideB, domain.Tokens(100), 1.0)
	}
	after := tr.Bias("colosseum-1")
	assert.Less(t, after, 0.5)
}

func TestSnapshot(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	empty := tr.Snapshot("colosseum-1")
	assert.Equal(t, 0.5, empty.Bias)
	assert.Zero(t, empty.Samples)

	tr.Record("colosseum-1", domain.SideA, domain.Tokens(100), 0.5)
	tr.Record("colosseum-1", domain.SideA, domain.Tokens(10), 0.5)
	tr.Record("colosseum-1", domain.SideB, domain.Tokens(5), 0.2)

	snap := tr.Snapshot("colosseum-1")
	assert.Equal(t, "colosseum-1", snap.ArenaID)
	assert.Equal(t, 3, snap.Samples)
	assert.Greater(t, snap.Bias, 0.5)
	assert.Greater(t, snap.Intensity, 0.0)
	assert.LessOrEqual(t, snap.Intensity, 1.0)
	assert.Greater(t, snap.Volatility, 0.0)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestSampleWeight(t *testing.T) {
	// Log in size: a 100x bet is far less than 100x the weight.
	small := sampleWeight(domain.Tokens(1), 0.5)
	big := sampleWeight(domain.Tokens(100), 0.5)
	assert.Greater(t, big, small)
	assert.Less(t, big, small*10)

	// Negative amounts clamp to zero weight.
	assert.Zero(t, sampleWeight(-domain.Tokens(1), 0.5))
}
