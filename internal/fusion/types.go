// Package fusion combines indicator and pattern reads into a single
// directional signal with a 0-100 confidence score. Two policies share the
// building blocks: a high-frequency scalp policy weighted toward indicator
// confluence, and a low-frequency swing policy built around strict
// trend/momentum alignment.
package fusion

import (
	"signal-trading-bot/internal/indicator"
	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/pattern"
)

// Policy names the fusion policy that produced a result.
type Policy string

const (
	PolicyScalp Policy = "scalp"
	PolicySwing Policy = "swing"
)

// Quality grades how well the constituent signals agree.
type Quality string

const (
	QualityWeak     Quality = "WEAK"
	QualityModerate Quality = "MODERATE"
	QualityStrong   Quality = "STRONG"
)

// ComponentScore is one constituent's contribution to the final score. A
// failed sub-computation contributes zero and carries the error text; it
// never aborts the analysis.
type ComponentScore struct {
	Score  float64 `json:"score"`
	Detail string  `json:"detail,omitempty"`
	Err    string  `json:"err,omitempty"`
}

// Components is the fixed per-component breakdown. Fields unused by a
// policy stay zero so results from both policies serialize identically.
type Components struct {
	Candlestick ComponentScore `json:"candlestick"`
	Confluence  ComponentScore `json:"confluence"`
	Trend       ComponentScore `json:"trend"`
	Momentum    ComponentScore `json:"momentum"`
	Fibonacci   ComponentScore `json:"fibonacci"`
	Harmonic    ComponentScore `json:"harmonic"`
	Bonus       ComponentScore `json:"bonus"`
}

// AnalysisResult is one complete fusion read of a candle window. It is
// created fresh per call, never mutated afterwards, and stored verbatim as
// the entry snapshot of any trade opened from it.
type AnalysisResult struct {
	Timestamp    int64   `json:"timestamp"`
	Symbol       string  `json:"symbol"`
	Policy       Policy  `json:"policy"`
	CurrentPrice float64 `json:"currentPrice"`

	Components Components `json:"components"`

	FinalSignal    market.Direction `json:"finalSignal"`
	Confidence     float64          `json:"confidence"`
	Quality        Quality          `json:"quality"`
	MeetsThreshold bool             `json:"meetsThreshold"`

	// Context carried for the outcome analyzer.
	TrendDirection     market.Direction          `json:"trendDirection"`
	TrendStrength      float64                   `json:"trendStrength"`
	MomentumDirection  market.Direction          `json:"momentumDirection"`
	MomentumScore      float64                   `json:"momentumScore"`
	VolumeAboveAverage bool                      `json:"volumeAboveAverage"`
	Regime             indicator.Regime          `json:"regime"`
	Candlestick        pattern.CandlestickSignal `json:"candlestickSignal"`
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
