package fusion

import (
	"github.com/rs/zerolog"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/indicator"
	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/pattern"
)

// Engine runs the two fusion policies over candle windows. It holds no
// mutable state between calls: every analysis is a pure function of the
// window and the configuration captured at construction.
type Engine struct {
	indicatorCfg config.IndicatorConfig
	scalpCfg     config.ScalpConfig
	swingCfg     config.SwingConfig

	candlesticks *pattern.CandlestickDetector
	logger       zerolog.Logger
}

// NewEngine builds a fusion engine with default detectors.
func NewEngine(cfg *config.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		indicatorCfg: cfg.Indicator,
		scalpCfg:     cfg.Scalp,
		swingCfg:     cfg.Swing,
		candlesticks: pattern.NewCandlestickDetector(nil),
		logger:       logger.With().Str("component", "fusion").Logger(),
	}
}

// snapshotOrNil computes the indicator snapshot, absorbing failures: a
// window too short for the indicators degrades the dependent components to
// zero scores instead of aborting the analysis.
func (e *Engine) snapshotOrNil(candles []market.Candle) (*indicator.Snapshot, string) {
	snap, err := indicator.Compute(candles, e.indicatorCfg)
	if err != nil {
		e.logger.Debug().Err(err).Msg("indicator snapshot unavailable")
		return nil, err.Error()
	}
	return snap, ""
}

// trendContext computes the trend and momentum reads used both for swing
// scoring and for the context fields every result carries. Failures are
// absorbed into neutral reads with error text.
func (e *Engine) trendContext(candles []market.Candle, snap *indicator.Snapshot) (trendRead, momentumRead, string, string) {
	var trendErr, momentumErr string

	var trend trendRead
	if snap == nil {
		trend = trendRead{Direction: market.Neutral}
		trendErr = "indicator snapshot unavailable"
	} else {
		var err error
		trend, err = computeTrend(candles, snap.ADX.Value, e.swingCfg)
		if err != nil {
			trend = trendRead{Direction: market.Neutral}
			trendErr = err.Error()
		}
	}

	momentum, err := computeMomentum(candles, e.swingCfg)
	if err != nil {
		momentum = momentumRead{Direction: market.Neutral}
		momentumErr = err.Error()
	}

	return trend, momentum, trendErr, momentumErr
}

// fibNearby runs the Fibonacci proximity test over the recent swing range.
// Returns whether any level is nearby, plus detail/error text.
func fibNearby(candles []market.Candle, lookback int, price, tolerancePct float64, mode pattern.ToleranceMode) (bool, string, string) {
	high, low, ok := pattern.RecentSwingRange(candles, lookback)
	if !ok {
		return false, "", "no swing range in window"
	}
	sig, err := pattern.AnalyzeFibonacci(high, low, price, tolerancePct, mode)
	if err != nil {
		return false, "", err.Error()
	}
	if len(sig.Nearby) == 0 {
		return false, "no level nearby", ""
	}
	return true, sig.Nearby[0].Label, ""
}

// harmonicValid reports whether any harmonic pattern completes at the
// current price.
func harmonicValid(candles []market.Candle, lookback int, tolerancePct float64) (bool, string) {
	detector := pattern.NewHarmonicDetector(nil, tolerancePct)
	for _, m := range detector.FromCandles(candles, lookback) {
		if m.AtCompletion {
			return true, m.Pattern
		}
	}
	return false, ""
}
