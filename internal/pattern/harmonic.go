package pattern

import (
	"math"

	"signal-trading-bot/internal/market"
)

// Harmonic pattern names.
const (
	HarmonicGartley   = "Gartley"
	HarmonicBat       = "Bat"
	HarmonicButterfly = "Butterfly"
)

// XABC holds the four pivot prices a harmonic pattern is measured from, in
// chronological order.
type XABC struct {
	X float64 `json:"x"`
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// RatioBand is an inclusive acceptance band for a leg ratio.
type RatioBand struct {
	Min float64
	Max float64
}

// Contains reports whether r falls inside the band.
func (b RatioBand) Contains(r float64) bool {
	return r >= b.Min && r <= b.Max
}

// HarmonicDefinition describes one pattern family: the AB and BC retracement
// bands plus the candidate D projection ratios, deepest first.
type HarmonicDefinition struct {
	Name        string
	AB          RatioBand
	BC          RatioBand
	Projections []float64
}

// DefaultHarmonics returns the three built-in pattern families.
func DefaultHarmonics() []HarmonicDefinition {
	return []HarmonicDefinition{
		{
			Name:        HarmonicGartley,
			AB:          RatioBand{Min: 0.58, Max: 0.67},
			BC:          RatioBand{Min: 0.382, Max: 0.886},
			Projections: []float64{0.786, 0.618},
		},
		{
			Name:        HarmonicBat,
			AB:          RatioBand{Min: 0.38, Max: 0.52},
			BC:          RatioBand{Min: 0.382, Max: 0.886},
			Projections: []float64{0.886, 0.50},
		},
		{
			Name:        HarmonicButterfly,
			AB:          RatioBand{Min: 0.72, Max: 0.84},
			BC:          RatioBand{Min: 0.50, Max: 0.886},
			Projections: []float64{1.27, 1.618},
		},
	}
}

// HarmonicMatch is a completed pattern match: the family, the measured leg
// ratios, the projected D completion prices and the trade direction implied
// by the pivot geometry.
type HarmonicMatch struct {
	Pattern      string           `json:"pattern"`
	Points       XABC             `json:"points"`
	ABRatio      float64          `json:"abRatio"`
	BCRatio      float64          `json:"bcRatio"`
	DTargets     []float64        `json:"dTargets"`
	Direction    market.Direction `json:"direction"`
	AtCompletion bool             `json:"atCompletion"`
}

// HarmonicDetector matches XABC pivot structures against a set of pattern
// definitions.
type HarmonicDetector struct {
	definitions []HarmonicDefinition
	// percentage of current price within which D counts as reached
	tolerancePct float64
}

// NewHarmonicDetector builds a detector over the given definitions. A nil
// slice installs the defaults.
func NewHarmonicDetector(defs []HarmonicDefinition, tolerancePct float64) *HarmonicDetector {
	if defs == nil {
		defs = DefaultHarmonics()
	}
	return &HarmonicDetector{definitions: defs, tolerancePct: tolerancePct}
}

// legRatios measures the AB retracement of XA and the BC retracement of AB.
// Both are magnitude ratios; direction is carried separately.
func legRatios(p XABC) (ab, bc float64, ok bool) {
	xa := math.Abs(p.A - p.X)
	abLeg := math.Abs(p.B - p.A)
	if xa == 0 || abLeg == 0 {
		return 0, 0, false
	}
	ab = math.Abs(p.B-p.X) / xa
	bc = math.Abs(p.C-p.B) / abLeg
	return ab, bc, true
}

// Match tests the pivots against every definition and returns all matches.
// D targets project back from X along the XA leg: D = X + (A-X)*ratio, so a
// 0.786 projection sits 78.6% of the way from X to A. Direction follows the
// final pivot: C above X implies a bullish completion, C below X a bearish
// one.
func (d *HarmonicDetector) Match(p XABC, currentPrice float64) []HarmonicMatch {
	ab, bc, ok := legRatios(p)
	if !ok {
		return nil
	}

	direction := market.Bullish
	if p.C < p.X {
		direction = market.Bearish
	}

	tolerance := currentPrice * d.tolerancePct / 100

	var matches []HarmonicMatch
	for _, def := range d.definitions {
		if !def.AB.Contains(ab) || !def.BC.Contains(bc) {
			continue
		}

		targets := make([]float64, len(def.Projections))
		atCompletion := false
		for i, ratio := range def.Projections {
			targets[i] = p.X + (p.A-p.X)*ratio
			if math.Abs(currentPrice-targets[i]) <= tolerance {
				atCompletion = true
			}
		}

		matches = append(matches, HarmonicMatch{
			Pattern:      def.Name,
			Points:       p,
			ABRatio:      ab,
			BCRatio:      bc,
			DTargets:     targets,
			Direction:    direction,
			AtCompletion: atCompletion,
		})
	}
	return matches
}

// FromCandles derives the XABC pivots from the four most recent swing
// extrema in the window and matches them. Returns nil when the window does
// not hold four alternating extrema.
func (d *HarmonicDetector) FromCandles(candles []market.Candle, swingLookback int) []HarmonicMatch {
	if len(candles) == 0 {
		return nil
	}
	extrema := RecentExtrema(candles, swingLookback, 4)
	if len(extrema) < 4 {
		return nil
	}
	for i := 1; i < 4; i++ {
		if extrema[i].IsHigh == extrema[i-1].IsHigh {
			return nil
		}
	}

	p := XABC{
		X: extrema[0].Price,
		A: extrema[1].Price,
		B: extrema[2].Price,
		C: extrema[3].Price,
	}
	return d.Match(p, candles[len(candles)-1].Close)
}
