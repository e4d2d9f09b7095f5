package fusion

import (
	"math"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/indicator"
	"signal-trading-bot/internal/market"
)

// trendSidewaysBandPct: EMA separation below this reads as sideways.
const trendSidewaysBandPct = 0.5

// momentumDeadBandPct: price change below this reads as flat momentum.
const momentumDeadBandPct = 0.1

// trendRead is the fast/slow EMA trend state blended with ADX.
type trendRead struct {
	Direction market.Direction
	Strength  float64 // 0-100
	FastEMA   float64
	SlowEMA   float64
}

// momentumRead is the rate-of-change momentum state.
type momentumRead struct {
	Direction market.Direction
	Score     float64 // 0-100
	ChangePct float64
}

// computeTrend reads trend direction from fast/slow EMA separation and
// strength from ADX plus that separation. Separation inside the sideways
// band yields a NEUTRAL direction; strength is still reported so callers
// can veto counter-trend entries on a strong tape.
func computeTrend(candles []market.Candle, adx float64, cfg config.SwingConfig) (trendRead, error) {
	fast, err := indicator.EMA(candles, cfg.FastEMAPeriod)
	if err != nil {
		return trendRead{}, err
	}
	slow, err := indicator.EMA(candles, cfg.SlowEMAPeriod)
	if err != nil {
		return trendRead{}, err
	}
	if slow == 0 {
		return trendRead{Direction: market.Neutral, FastEMA: fast, SlowEMA: slow}, nil
	}

	diffPct := (fast - slow) / slow * 100

	direction := market.Neutral
	if diffPct > trendSidewaysBandPct {
		direction = market.Bullish
	} else if diffPct < -trendSidewaysBandPct {
		direction = market.Bearish
	}

	strength := clampScore(adx*1.5 + math.Abs(diffPct)*10)

	return trendRead{Direction: direction, Strength: strength, FastEMA: fast, SlowEMA: slow}, nil
}

// computeMomentum reads momentum from the rate of change over the momentum
// period: direction from the sign with a small dead band, score scaled so a
// 5% move saturates at 100.
func computeMomentum(candles []market.Candle, cfg config.SwingConfig) (momentumRead, error) {
	changePct, err := indicator.Momentum(candles, cfg.MomentumPeriod)
	if err != nil {
		return momentumRead{}, err
	}

	direction := market.Neutral
	if changePct > momentumDeadBandPct {
		direction = market.Bullish
	} else if changePct < -momentumDeadBandPct {
		direction = market.Bearish
	}

	return momentumRead{
		Direction: direction,
		Score:     clampScore(math.Abs(changePct) * 20),
		ChangePct: changePct,
	}, nil
}
