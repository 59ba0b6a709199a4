package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/domain"
)

func TestCurrentOddsBalancedPool(t *testing.T) {
	pool := domain.Pool{
		StakeA:         1000,
		StakeB:         1000,
		HouseLiquidity: 500,
	}

	odds := CurrentOdds(pool, 0.5, DefaultPricing())

	// effective = 1250 per side, total = 2500, odds = 2 * 0.95 = 1.90.
	want := decimal.NewFromFloat(1.9)
	assert.True(t, odds.SideA.Equal(want), "side A got %s", odds.SideA)
	assert.True(t, odds.SideB.Equal(want), "side B got %s", odds.SideB)
}

func TestCurrentOddsEmptyPool(t *testing.T) {
	odds := CurrentOdds(domain.Pool{}, 0.5, DefaultPricing())

	want := decimal.NewFromFloat(1.9)
	assert.True(t, odds.SideA.Equal(want), "side A got %s", odds.SideA)
	assert.True(t, odds.SideB.Equal(want), "side B got %s", odds.SideB)
}

func TestCurrentOddsHeavyFavoriteFloored(t *testing.T) {
	pool := domain.Pool{
		StakeA:         100_000,
		StakeB:         0,
		HouseLiquidity: 1000,
	}

	odds := CurrentOdds(pool, 0.5, DefaultPricing())

	// The favorite's raw odds are below 1, so the floor engages.
	assert.True(t, odds.SideA.Equal(decimal.NewFromFloat(1.01)), "side A got %s", odds.SideA)
	assert.True(t, odds.SideB.GreaterThan(decimal.NewFromInt(100)), "side B got %s", odds.SideB)
}

func TestCurrentOddsSentimentSkew(t *testing.T) {
	pool := domain.Pool{
		StakeA:         1000,
		StakeB:         1000,
		HouseLiquidity: 500,
	}
	cfg := DefaultPricing()

	neutral := CurrentOdds(pool, 0.5, cfg)
	skewed := CurrentOdds(pool, 1.0, cfg)

	// All sentiment behind side A lengthens A and shortens B.
	assert.True(t, skewed.SideA.GreaterThan(neutral.SideA),
		"side A should lengthen: %s vs %s", skewed.SideA, neutral.SideA)
	assert.True(t, skewed.SideB.LessThan(neutral.SideB),
		"side B should shorten: %s vs %s", skewed.SideB, neutral.SideB)

	// m = 1 + 0.5*0.1 = 1.05, so A = 1.9 * 1.05 = 1.995.
	assert.True(t, skewed.SideA.Equal(decimal.NewFromFloat(1.995)), "got %s", skewed.SideA)
}

func TestCurrentOddsStakeMovesOdds(t *testing.T) {
	cfg := DefaultPricing()
	before := CurrentOdds(domain.Pool{StakeA: 1000, StakeB: 1000, HouseLiquidity: 500}, 0.5, cfg)
	after := CurrentOdds(domain.Pool{StakeA: 2000, StakeB: 1000, HouseLiquidity: 500}, 0.5, cfg)

	// More stake on A shortens A and lengthens B.
	assert.True(t, after.SideA.LessThan(before.SideA))
	assert.True(t, after.SideB.GreaterThan(before.SideB))
}

func TestSentimentMultiplier(t *testing.T) {
	k := decimal.NewFromFloat(0.1)

	tests := []struct {
		name string
		bias float64
		want string
	}{
		{"neutral", 0.5, "1"},
		{"all side a", 1.0, "1.05"},
		{"all side b", 0.0, "0.95"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sentimentMultiplier(tt.bias, k)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s want %s", got, want)
		})
	}
}

func TestFreezeOdds(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.995", "2"},
		{"1.8095238095", "1.81"},
		{"1.9", "1.9"},
		{"1.014", "1.01"},
	}
	for _, tt := range tests {
		in, err := decimal.NewFromString(tt.in)
		require.NoError(t, err)
		want, err := decimal.NewFromString(tt.want)
		require.NoError(t, err)
		assert.True(t, FreezeOdds(in).Equal(want), "freeze %s got %s", tt.in, FreezeOdds(in))
	}
}
