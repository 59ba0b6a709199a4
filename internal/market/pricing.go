package market

import (
	"github.com/shopspring/decimal"

	"github.com/colosseo/arenabook/internal/domain"
)

// PricingConfig holds the odds formula parameters.
type PricingConfig struct {
	// HouseEdge is the fraction of the pool the house retains, embedded in
	// the odds as a (1 - edge) scale.
	HouseEdge decimal.Decimal
	// SentimentWeight is k in the sentiment multiplier 1 + (bias-0.5)*k.
	SentimentWeight decimal.Decimal
	// MinOdds floors both sides so the house never offers a sure loss.
	MinOdds decimal.Decimal
}

// DefaultPricing returns the standard house parameters: 5% edge, 0.1
// sentiment weight, 1.01 odds floor.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		HouseEdge:       decimal.NewFromFloat(0.05),
		SentimentWeight: decimal.NewFromFloat(0.1),
		MinOdds:         decimal.NewFromFloat(1.01),
	}
}

var two = decimal.NewFromInt(2)

// CurrentOdds computes the live odds pair for a pool. The formula, per side:
//
//	effective  = side stake + houseLiquidity/2
//	implied    = effective / (stakeA + stakeB + houseLiquidity)
//	odds       = (1/implied) * (1 - houseEdge)
//
// then the sentiment multiplier m = 1 + (bias-0.5)*k scales side A by m and
// side B by 1/m, and both sides are floored at MinOdds. Half the house
// liquidity on each side keeps the implied probabilities well defined even
// for a zero-stake pool.
//
// Odds are recomputed on every query and after every mutating bet; they are
// never cached as a source of truth.
func CurrentOdds(pool domain.Pool, bias float64, cfg PricingConfig) domain.OddsPair {
	halfLiq := decimal.NewFromInt(pool.HouseLiquidity).Div(two)
	effA := decimal.NewFromInt(pool.StakeA).Add(halfLiq)
	effB := decimal.NewFromInt(pool.StakeB).Add(halfLiq)
	total := effA.Add(effB)

	if total.IsZero() {
		// No stakes and no liquidity: even odds, edge applied.
		even := two.Mul(decimal.NewFromInt(1).Sub(cfg.HouseEdge))
		return domain.OddsPair{SideA: floorOdds(even, cfg), SideB: floorOdds(even, cfg)}
	}

	payoutScale := decimal.NewFromInt(1).Sub(cfg.HouseEdge)
	oddsA := total.Div(effA).Mul(payoutScale)
	oddsB := total.Div(effB).Mul(payoutScale)

	m := sentimentMultiplier(bias, cfg.SentimentWeight)
	oddsA = oddsA.Mul(m)
	oddsB = oddsB.Div(m)

	return domain.OddsPair{
		SideA: floorOdds(oddsA, cfg),
		SideB: floorOdds(oddsB, cfg),
	}
}

// sentimentMultiplier is 1 + (bias - 0.5) * k.
func sentimentMultiplier(bias float64, k decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(decimal.NewFromFloat(bias - 0.5).Mul(k))
}

func floorOdds(odds decimal.Decimal, cfg PricingConfig) decimal.Decimal {
	if odds.LessThan(cfg.MinOdds) {
		return cfg.MinOdds
	}
	return odds
}

// FreezeOdds rounds live odds to two decimal places for recording on a bet.
// Frozen odds never change after placement.
func FreezeOdds(odds decimal.Decimal) decimal.Decimal {
	return odds.Round(2)
}
