// Package outcome attributes losing trades to causes and aggregates
// statistics across the closed-trade history. It is purely observational:
// nothing here feeds back into signal generation or risk management.
package outcome

import (
	"math"

	"github.com/rs/zerolog"

	"signal-trading-bot/internal/fusion"
	"signal-trading-bot/internal/indicator"
	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/pattern"
	"signal-trading-bot/internal/position"
)

// Cause labels one failure condition found at entry time. The declaration
// order is the checklist's priority order: the first matched cause is the
// primary one.
type Cause string

const (
	CauseCounterTrend       Cause = "COUNTER_TREND"
	CauseWeakTrend          Cause = "WEAK_TREND"
	CauseMomentumMisaligned Cause = "MOMENTUM_MISALIGNED"
	CauseLowMomentum        Cause = "LOW_MOMENTUM"
	CauseLowVolume          Cause = "LOW_VOLUME"
	CauseRangingMarket      Cause = "RANGING_MARKET"
	CauseStopTooTight       Cause = "STOP_TOO_TIGHT"
	CauseLowConfidence      Cause = "LOW_CONFIDENCE"
	CauseWeakQuality        Cause = "WEAK_QUALITY"
	CauseNoCandlestick      Cause = "NO_CANDLESTICK"
)

// Thresholds for the checklist.
const (
	weakTrendStrength  = 40.0
	lowMomentumScore   = 40.0
	tightStopPct       = 1.5
	lowEntryConfidence = 55.0
)

// FailureReport is the cause attribution for one losing trade.
type FailureReport struct {
	TradeID      string  `json:"tradeId"`
	Symbol       string  `json:"symbol"`
	PrimaryCause Cause   `json:"primaryCause"`
	Causes       []Cause `json:"causes"`
}

// Analyzer classifies stop-hit losses against the entry snapshot.
type Analyzer struct {
	logger zerolog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(logger zerolog.Logger) *Analyzer {
	return &Analyzer{logger: logger.With().Str("component", "outcome").Logger()}
}

// Analyze attributes a closed trade's loss to causes. Only losing trades
// closed by a plain stop hit qualify: a target hit is definitionally not a
// failure, and a trailing-stop exit banked an earlier gain. Returns false
// when the trade does not qualify.
func (a *Analyzer) Analyze(trade position.Trade) (FailureReport, bool) {
	if trade.Status != position.StatusClosed ||
		trade.ExitReason != position.ExitStopHit ||
		trade.ProfitLoss >= 0 {
		return FailureReport{}, false
	}

	snap := trade.EntrySnapshot
	var causes []Cause

	if snap.TrendDirection != market.Neutral && trade.Direction == snap.TrendDirection.Opposite() {
		causes = append(causes, CauseCounterTrend)
	}
	if snap.TrendStrength < weakTrendStrength {
		causes = append(causes, CauseWeakTrend)
	}
	if snap.MomentumDirection != market.Neutral && snap.MomentumDirection != trade.Direction {
		causes = append(causes, CauseMomentumMisaligned)
	}
	if snap.MomentumScore < lowMomentumScore {
		causes = append(causes, CauseLowMomentum)
	}
	if !snap.VolumeAboveAverage {
		causes = append(causes, CauseLowVolume)
	}
	if snap.Regime == indicator.RegimeRanging {
		causes = append(causes, CauseRangingMarket)
	}
	if stopDistancePct(trade) < tightStopPct {
		causes = append(causes, CauseStopTooTight)
	}
	if trade.Confidence < lowEntryConfidence {
		causes = append(causes, CauseLowConfidence)
	}
	if snap.Quality == fusion.QualityWeak {
		causes = append(causes, CauseWeakQuality)
	}
	if snap.Candlestick.Pattern == pattern.PatternNone || snap.Candlestick.Signal == market.Neutral {
		causes = append(causes, CauseNoCandlestick)
	}

	report := FailureReport{
		TradeID: trade.ID,
		Symbol:  trade.Symbol,
		Causes:  causes,
	}
	if len(causes) > 0 {
		report.PrimaryCause = causes[0]
	}

	a.logger.Debug().
		Str("symbol", trade.Symbol).
		Str("primaryCause", string(report.PrimaryCause)).
		Int("causes", len(causes)).
		Msg("loss analyzed")

	return report, true
}

// stopDistancePct measures the stop distance as a percentage of entry. A
// plain stop hit means the trailing mechanism never moved the stop, so
// this is the distance chosen at entry.
func stopDistancePct(trade position.Trade) float64 {
	if trade.EntryPrice == 0 {
		return 0
	}
	return math.Abs(trade.EntryPrice-trade.StopPrice) / trade.EntryPrice * 100
}
