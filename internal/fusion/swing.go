package fusion

import (
	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/pattern"
)

// Swing band ceilings: the five bands sum to 100 before the alignment
// bonus.
const (
	swingTrendBand       = 30.0
	swingMomentumBand    = 25.0
	swingCandlestickBand = 20.0
	swingFibBand         = 15.0
	swingHarmonicBand    = 10.0

	swingAlignmentBonus   = 10.0
	swingCandlestickBonus = 10.0
	swingDisagreePenalty  = 5.0

	// Direction state machine thresholds.
	swingAlignedTrendStrength  = 50.0
	swingDominantTrendStrength = 75.0
	swingMomentumOnlyScore     = 60.0
	swingVetoTrendStrength     = 80.0
)

// AnalyzeSwing runs the low-frequency policy: five weighted bands with a
// strict trend/momentum alignment state machine for direction.
//
// Unlike the scalp policy, MeetsThreshold requires a non-NEUTRAL direction
// in addition to the confidence minimum.
func (e *Engine) AnalyzeSwing(symbol string, candles []market.Candle) AnalysisResult {
	result := AnalysisResult{
		Symbol: symbol,
		Policy: PolicySwing,
	}
	if len(candles) == 0 {
		result.FinalSignal = market.Neutral
		result.Quality = QualityWeak
		return result
	}

	last := candles[len(candles)-1]
	result.Timestamp = last.OpenTime
	result.CurrentPrice = last.Close

	snap, snapErr := e.snapshotOrNil(candles)
	trend, momentum, trendErr, momentumErr := e.trendContext(candles, snap)

	result.TrendDirection = trend.Direction
	result.TrendStrength = trend.Strength
	result.MomentumDirection = momentum.Direction
	result.MomentumScore = momentum.Score
	if snap != nil {
		result.VolumeAboveAverage = snap.Volume.AboveAverage
		result.Regime = snap.ADX.Regime
	}

	aligned := trend.Direction != market.Neutral && trend.Direction == momentum.Direction

	// Trend band: strength carries up to 20 points, alignment the final 10.
	var trendScore float64
	if trend.Direction != market.Neutral {
		trendScore = trend.Strength / 100 * (swingTrendBand - 10)
		if aligned {
			trendScore += 10
		}
	}
	result.Components.Trend = ComponentScore{Score: trendScore, Err: trendErr}
	if trendErr == "" && snapErr != "" {
		result.Components.Trend.Err = snapErr
	}

	momentumScore := momentum.Score / 100 * swingMomentumBand
	result.Components.Momentum = ComponentScore{Score: momentumScore, Err: momentumErr}

	cs := e.candlesticks.Detect(candles)
	result.Candlestick = cs
	csScore := cs.Confidence / 40 * swingCandlestickBand
	result.Components.Candlestick = ComponentScore{Score: csScore, Detail: cs.Pattern}

	nearby, fibDetail, fibErr := fibNearby(candles, e.swingCfg.SwingLookback,
		result.CurrentPrice, e.swingCfg.FibTolerancePct, pattern.ToleranceOfPrice)
	var fibScore float64
	if nearby {
		fibScore = swingFibBand
	}
	result.Components.Fibonacci = ComponentScore{Score: fibScore, Detail: fibDetail, Err: fibErr}

	valid, harmonicDetail := harmonicValid(candles, e.swingCfg.SwingLookback, e.swingCfg.HarmonicTolerance)
	var harmonicScore float64
	if valid {
		harmonicScore = swingHarmonicBand
	}
	result.Components.Harmonic = ComponentScore{Score: harmonicScore, Detail: harmonicDetail}

	base := clampScore(trendScore + momentumScore + csScore + fibScore + harmonicScore)

	direction, quality := resolveSwingDirection(trend, momentum, cs.Signal)

	// Alignment bonus on top of the normalized base.
	var bonus float64
	csDisagrees := false
	if aligned {
		bonus += swingAlignmentBonus
		if cs.Signal == trend.Direction {
			bonus += swingCandlestickBonus
		} else if cs.Signal != market.Neutral {
			bonus -= swingDisagreePenalty
			csDisagrees = true
		}
	}
	result.Components.Bonus = ComponentScore{Score: bonus}

	if csDisagrees {
		quality = QualityWeak
	}

	result.Confidence = clampScore(base + bonus)
	result.FinalSignal = direction
	result.Quality = quality
	result.MeetsThreshold = result.Confidence >= e.swingCfg.MinConfidence &&
		result.FinalSignal != market.Neutral

	e.logger.Debug().
		Str("symbol", symbol).
		Str("signal", string(result.FinalSignal)).
		Float64("confidence", result.Confidence).
		Str("quality", string(result.Quality)).
		Bool("meetsThreshold", result.MeetsThreshold).
		Msg("swing analysis")

	return result
}

// resolveSwingDirection runs the direction state machine in priority
// order, then applies the counter-trend veto: on a strongly trending tape
// a direction opposing the trend is forced back to NEUTRAL no matter which
// rule selected it.
func resolveSwingDirection(trend trendRead, momentum momentumRead, candlestick market.Direction) (market.Direction, Quality) {
	aligned := trend.Direction != market.Neutral && trend.Direction == momentum.Direction

	direction := market.Neutral
	quality := QualityWeak
	switch {
	case aligned && trend.Strength >= swingAlignedTrendStrength:
		direction = trend.Direction
		if candlestick == direction {
			quality = QualityStrong
		} else {
			quality = QualityModerate
		}
	case trend.Direction != market.Neutral &&
		trend.Strength >= swingDominantTrendStrength &&
		momentum.Direction != trend.Direction.Opposite():
		direction = trend.Direction
		quality = QualityModerate
	case momentum.Direction != market.Neutral &&
		momentum.Score >= swingMomentumOnlyScore &&
		trend.Direction != momentum.Direction.Opposite():
		direction = momentum.Direction
		quality = QualityModerate
	}

	if trend.Direction != market.Neutral &&
		trend.Strength >= swingVetoTrendStrength &&
		direction == trend.Direction.Opposite() {
		direction = market.Neutral
		quality = QualityWeak
	}

	return direction, quality
}
