package fusion

import (
	"signal-trading-bot/internal/indicator"
	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/pattern"
)

// Scalp weighting: candlestick and indicator confluence carry 40 points
// each; the rest arrives as flat bonuses.
const (
	scalpCandlestickWeight = 0.4
	scalpConfluenceWeight  = 0.4

	scalpFibBonus        = 10
	scalpHarmonicBonus   = 10
	scalpVolumeBonus     = 5
	scalpVolatilityBonus = 5
	scalpRegimeBonus     = 10

	// ADX strength at or above this in a trending regime counts as a
	// strong trend for the regime bonus.
	scalpStrongTrendStrength = 50
)

// AnalyzeScalp runs the high-frequency policy: loose consensus, indicator
// confluence and candlestick reads weighted equally, pattern and regime
// reads as flat bonuses.
//
// MeetsThreshold here checks confidence only. A NEUTRAL direction can still
// meet the threshold, so callers must check FinalSignal before acting. The
// swing policy behaves differently on purpose; the two are documented as
// distinct behaviors.
func (e *Engine) AnalyzeScalp(symbol string, candles []market.Candle) AnalysisResult {
	result := AnalysisResult{
		Symbol: symbol,
		Policy: PolicyScalp,
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

	// Candlestick: 0-40 weight maps onto 0-100 pct, weighted 0.4.
	cs := e.candlesticks.Detect(candles)
	result.Candlestick = cs
	result.Components.Candlestick = ComponentScore{
		Score:  scalpCandlestickWeight * (cs.Confidence / 40 * 100),
		Detail: cs.Pattern,
	}

	// Indicator confluence.
	confluenceDir := market.Neutral
	if snap != nil {
		read := scoreConfluence(snap)
		confluenceDir = read.Direction
		result.Components.Confluence = ComponentScore{
			Score:  scalpConfluenceWeight * read.Strength,
			Detail: read.Detail,
		}
	} else {
		result.Components.Confluence = ComponentScore{Err: snapErr}
	}

	// Fibonacci proximity, tolerance measured against the swing range.
	nearby, fibDetail, fibErr := fibNearby(candles, e.scalpCfg.SwingLookback,
		result.CurrentPrice, e.scalpCfg.FibTolerancePct, pattern.ToleranceOfRange)
	fibScore := 0.0
	if nearby {
		fibScore = scalpFibBonus
	}
	result.Components.Fibonacci = ComponentScore{Score: fibScore, Detail: fibDetail, Err: fibErr}

	// Harmonic completion.
	valid, harmonicDetail := harmonicValid(candles, e.scalpCfg.SwingLookback, e.scalpCfg.HarmonicTolerance)
	harmonicScore := 0.0
	if valid {
		harmonicScore = scalpHarmonicBonus
	}
	result.Components.Harmonic = ComponentScore{Score: harmonicScore, Detail: harmonicDetail}

	// Flat bonuses from the snapshot flags.
	var bonus float64
	if snap != nil {
		if snap.Volume.AboveAverage {
			bonus += scalpVolumeBonus
		}
		if snap.ATR.HighVolatility {
			bonus += scalpVolatilityBonus
		}
		if snap.ADX.Regime == indicator.RegimeTrending && snap.ADX.Strength >= scalpStrongTrendStrength {
			bonus += scalpRegimeBonus
		}
		result.Components.Bonus = ComponentScore{Score: bonus}
		result.VolumeAboveAverage = snap.Volume.AboveAverage
		result.Regime = snap.ADX.Regime
	} else {
		result.Components.Bonus = ComponentScore{Err: snapErr}
	}

	// Trend/momentum context for the outcome analyzer; not scored here.
	trend, momentum, _, _ := e.trendContext(candles, snap)
	result.TrendDirection = trend.Direction
	result.TrendStrength = trend.Strength
	result.MomentumDirection = momentum.Direction
	result.MomentumScore = momentum.Score

	result.Confidence = clampScore(
		result.Components.Candlestick.Score +
			result.Components.Confluence.Score +
			fibScore + harmonicScore + bonus)

	result.FinalSignal = resolveScalpDirection(cs.Signal, confluenceDir)
	result.Quality = scalpQuality(result.Confidence)
	result.MeetsThreshold = result.Confidence >= e.scalpCfg.MinConfidence

	e.logger.Debug().
		Str("symbol", symbol).
		Str("signal", string(result.FinalSignal)).
		Float64("confidence", result.Confidence).
		Bool("meetsThreshold", result.MeetsThreshold).
		Msg("scalp analysis")

	return result
}

// resolveScalpDirection: a direct conflict between candlestick and
// indicator reads forces NEUTRAL; otherwise the candlestick read wins when
// both are directional.
func resolveScalpDirection(candlestick, confluence market.Direction) market.Direction {
	if candlestick != market.Neutral && confluence != market.Neutral && candlestick != confluence {
		return market.Neutral
	}
	if candlestick != market.Neutral {
		return candlestick
	}
	return confluence
}

// scalpQuality grades confidence bands: 80+ strong, 60+ moderate.
func scalpQuality(confidence float64) Quality {
	switch {
	case confidence >= 80:
		return QualityStrong
	case confidence >= 60:
		return QualityModerate
	default:
		return QualityWeak
	}
}
