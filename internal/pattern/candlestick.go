// Package pattern contains the three independent pattern detectors:
// candlestick classification, Fibonacci retracement levels, and harmonic
// XABCD validation. Detectors read raw candles only and never depend on
// each other.
package pattern

import (
	"signal-trading-bot/internal/market"
)

// Candlestick pattern names.
const (
	PatternNone               = "None"
	PatternMorningStar        = "Morning Star"
	PatternEveningStar        = "Evening Star"
	PatternThreeWhiteSoldiers = "Three White Soldiers"
	PatternThreeBlackCrows    = "Three Black Crows"
	PatternBullishEngulfing   = "Bullish Engulfing"
	PatternBearishEngulfing   = "Bearish Engulfing"
	PatternBullishKicker      = "Bullish Kicker"
	PatternBearishKicker      = "Bearish Kicker"
	PatternPiercingLine       = "Piercing Line"
	PatternDarkCloudCover     = "Dark Cloud Cover"
	PatternBullishHarami      = "Bullish Harami"
	PatternBearishHarami      = "Bearish Harami"
	PatternHammer             = "Hammer"
	PatternInvertedHammer     = "Inverted Hammer"
	PatternShootingStar       = "Shooting Star"
	PatternHangingMan         = "Hanging Man"
	PatternDoji               = "Doji"
)

// WeightTable maps pattern name to its confidence weight (0-40). Injected
// into the detector so tests can override weights deterministically.
type WeightTable map[string]float64

// DefaultWeights returns the standard weight tiers: triple-candle reversals
// 40, double-candle patterns 20-30, single-candle patterns 8, doji 0
// (too indecisive to act on).
func DefaultWeights() WeightTable {
	return WeightTable{
		PatternMorningStar:        40,
		PatternEveningStar:        40,
		PatternThreeWhiteSoldiers: 40,
		PatternThreeBlackCrows:    40,
		PatternBullishEngulfing:   30,
		PatternBearishEngulfing:   30,
		PatternBullishKicker:      30,
		PatternBearishKicker:      30,
		PatternPiercingLine:       25,
		PatternDarkCloudCover:     25,
		PatternBullishHarami:      20,
		PatternBearishHarami:      20,
		PatternHammer:             8,
		PatternInvertedHammer:     8,
		PatternShootingStar:       8,
		PatternHangingMan:         8,
		PatternDoji:               0,
	}
}

// CandlestickSignal is the single best candlestick read of a window.
type CandlestickSignal struct {
	Pattern    string           `json:"pattern"`
	Signal     market.Direction `json:"signal"`
	Confidence float64          `json:"confidence"` // 0-40
}

// candlestickMatch is one detected pattern occurrence.
type candlestickMatch struct {
	name      string
	direction market.Direction
	endIndex  int
}

// CandlestickDetector classifies candlestick patterns with weighted tiers.
type CandlestickDetector struct {
	weights WeightTable
}

// NewCandlestickDetector creates a detector; a nil table uses the defaults.
func NewCandlestickDetector(weights WeightTable) *CandlestickDetector {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &CandlestickDetector{weights: weights}
}

// Detect scans the whole window for every known pattern, keeps only matches
// completing on the final candle, and returns the highest-weighted one.
// Returns NEUTRAL / 0 / "None" when nothing completes on the last candle.
func (d *CandlestickDetector) Detect(candles []market.Candle) CandlestickSignal {
	if len(candles) == 0 {
		return CandlestickSignal{Pattern: PatternNone, Signal: market.Neutral}
	}

	lastIdx := len(candles) - 1
	best := CandlestickSignal{Pattern: PatternNone, Signal: market.Neutral}
	bestWeight := -1.0

	for _, m := range d.scan(candles) {
		if m.endIndex != lastIdx {
			continue
		}
		w := d.weights[m.name]
		if w > bestWeight {
			bestWeight = w
			best = CandlestickSignal{Pattern: m.name, Signal: m.direction, Confidence: w}
		}
	}
	return best
}

// scan collects every pattern occurrence across the window.
func (d *CandlestickDetector) scan(candles []market.Candle) []candlestickMatch {
	var matches []candlestickMatch

	for i := range candles {
		matches = append(matches, d.singleCandle(candles, i)...)
		if i >= 1 {
			matches = append(matches, d.doubleCandle(candles[i-1], candles[i], i)...)
		}
		if i >= 2 {
			matches = append(matches, d.tripleCandle(candles[i-2], candles[i-1], candles[i], i)...)
		}
	}
	return matches
}

func (d *CandlestickDetector) singleCandle(candles []market.Candle, i int) []candlestickMatch {
	var matches []candlestickMatch
	c := candles[i]

	var prev *market.Candle
	if i > 0 {
		prev = &candles[i-1]
	}

	if isHammerShape(c) {
		// A hammer shape after an up candle is a hanging man (bearish);
		// otherwise a hammer (bullish).
		if prev != nil && prev.IsBullish() {
			matches = append(matches, candlestickMatch{PatternHangingMan, market.Bearish, i})
		} else {
			matches = append(matches, candlestickMatch{PatternHammer, market.Bullish, i})
		}
	}

	if isInvertedHammerShape(c) {
		// An inverted hammer shape after an up candle is a shooting star.
		if prev != nil && prev.IsBullish() {
			matches = append(matches, candlestickMatch{PatternShootingStar, market.Bearish, i})
		} else {
			matches = append(matches, candlestickMatch{PatternInvertedHammer, market.Bullish, i})
		}
	}

	if isDoji(c) {
		matches = append(matches, candlestickMatch{PatternDoji, market.Neutral, i})
	}

	return matches
}

func (d *CandlestickDetector) doubleCandle(prev, cur market.Candle, i int) []candlestickMatch {
	var matches []candlestickMatch

	if isBullishEngulfing(prev, cur) {
		matches = append(matches, candlestickMatch{PatternBullishEngulfing, market.Bullish, i})
	}
	if isBearishEngulfing(prev, cur) {
		matches = append(matches, candlestickMatch{PatternBearishEngulfing, market.Bearish, i})
	}
	if isBullishKicker(prev, cur) {
		matches = append(matches, candlestickMatch{PatternBullishKicker, market.Bullish, i})
	}
	if isBearishKicker(prev, cur) {
		matches = append(matches, candlestickMatch{PatternBearishKicker, market.Bearish, i})
	}
	if isPiercingLine(prev, cur) {
		matches = append(matches, candlestickMatch{PatternPiercingLine, market.Bullish, i})
	}
	if isDarkCloudCover(prev, cur) {
		matches = append(matches, candlestickMatch{PatternDarkCloudCover, market.Bearish, i})
	}
	if isBullishHarami(prev, cur) {
		matches = append(matches, candlestickMatch{PatternBullishHarami, market.Bullish, i})
	}
	if isBearishHarami(prev, cur) {
		matches = append(matches, candlestickMatch{PatternBearishHarami, market.Bearish, i})
	}

	return matches
}

func (d *CandlestickDetector) tripleCandle(first, second, third market.Candle, i int) []candlestickMatch {
	var matches []candlestickMatch

	if isMorningStar(first, second, third) {
		matches = append(matches, candlestickMatch{PatternMorningStar, market.Bullish, i})
	}
	if isEveningStar(first, second, third) {
		matches = append(matches, candlestickMatch{PatternEveningStar, market.Bearish, i})
	}
	if isThreeWhiteSoldiers(first, second, third) {
		matches = append(matches, candlestickMatch{PatternThreeWhiteSoldiers, market.Bullish, i})
	}
	if isThreeBlackCrows(first, second, third) {
		matches = append(matches, candlestickMatch{PatternThreeBlackCrows, market.Bearish, i})
	}

	return matches
}

// ============================================================================
// SINGLE CANDLE SHAPES
// ============================================================================

// isHammerShape: small body at the upper end, lower shadow at least 2x the
// body, little upper shadow.
func isHammerShape(c market.Candle) bool {
	body := c.Body()
	if body == 0 {
		return false
	}
	return c.LowerShadow() >= body*2 && c.UpperShadow() <= body*0.5
}

// isInvertedHammerShape: small body at the lower end, upper shadow at least
// 2x the body, little lower shadow.
func isInvertedHammerShape(c market.Candle) bool {
	body := c.Body()
	if body == 0 {
		return false
	}
	return c.UpperShadow() >= body*2 && c.LowerShadow() <= body*0.5
}

// isDoji: body under 5% of the total range.
func isDoji(c market.Candle) bool {
	r := c.Range()
	if r == 0 {
		return false
	}
	return c.Body() <= r*0.05
}

// ============================================================================
// TWO CANDLE PATTERNS
// ============================================================================

func isBullishEngulfing(prev, cur market.Candle) bool {
	if !prev.IsBearish() || !cur.IsBullish() {
		return false
	}
	return cur.Open <= prev.Close && cur.Close >= prev.Open
}

func isBearishEngulfing(prev, cur market.Candle) bool {
	if !prev.IsBullish() || !cur.IsBearish() {
		return false
	}
	return cur.Open >= prev.Close && cur.Close <= prev.Open
}

// isBullishKicker: a bearish candle followed by a bullish candle that gaps
// open above the previous open.
func isBullishKicker(prev, cur market.Candle) bool {
	return prev.IsBearish() && cur.IsBullish() && cur.Open > prev.Open
}

// isBearishKicker: a bullish candle followed by a bearish candle that gaps
// open below the previous open.
func isBearishKicker(prev, cur market.Candle) bool {
	return prev.IsBullish() && cur.IsBearish() && cur.Open < prev.Open
}

// isPiercingLine: bullish candle opens below the prior bearish close and
// closes above its midpoint without engulfing it.
func isPiercingLine(prev, cur market.Candle) bool {
	if !prev.IsBearish() || !cur.IsBullish() {
		return false
	}
	midpoint := (prev.Open + prev.Close) / 2
	return cur.Open < prev.Close && cur.Close > midpoint && cur.Close < prev.Open
}

// isDarkCloudCover: mirror of the piercing line.
func isDarkCloudCover(prev, cur market.Candle) bool {
	if !prev.IsBullish() || !cur.IsBearish() {
		return false
	}
	midpoint := (prev.Open + prev.Close) / 2
	return cur.Open > prev.Close && cur.Close < midpoint && cur.Close > prev.Open
}

// isBullishHarami: small bullish body contained inside the prior large
// bearish body.
func isBullishHarami(prev, cur market.Candle) bool {
	if !prev.IsBearish() || !cur.IsBullish() {
		return false
	}
	return cur.Open > prev.Close && cur.Close < prev.Open && cur.Body() < prev.Body()*0.6
}

// isBearishHarami: small bearish body contained inside the prior large
// bullish body.
func isBearishHarami(prev, cur market.Candle) bool {
	if !prev.IsBullish() || !cur.IsBearish() {
		return false
	}
	return cur.Open < prev.Close && cur.Close > prev.Open && cur.Body() < prev.Body()*0.6
}

// ============================================================================
// THREE CANDLE PATTERNS
// ============================================================================

func isMorningStar(first, second, third market.Candle) bool {
	if !first.IsBearish() || !third.IsBullish() {
		return false
	}
	firstMidpoint := (first.Open + first.Close) / 2
	return second.Body() < first.Body()*0.3 &&
		second.Body() < third.Body()*0.3 &&
		third.Close > firstMidpoint
}

func isEveningStar(first, second, third market.Candle) bool {
	if !first.IsBullish() || !third.IsBearish() {
		return false
	}
	firstMidpoint := (first.Open + first.Close) / 2
	return second.Body() < first.Body()*0.3 &&
		second.Body() < third.Body()*0.3 &&
		third.Close < firstMidpoint
}

func isThreeWhiteSoldiers(first, second, third market.Candle) bool {
	if !first.IsBullish() || !second.IsBullish() || !third.IsBullish() {
		return false
	}
	return second.Open > first.Open && second.Open < first.Close &&
		third.Open > second.Open && third.Open < second.Close &&
		second.Close > first.Close &&
		third.Close > second.Close
}

func isThreeBlackCrows(first, second, third market.Candle) bool {
	if !first.IsBearish() || !second.IsBearish() || !third.IsBearish() {
		return false
	}
	return second.Open < first.Open && second.Open > first.Close &&
		third.Open < second.Open && third.Open > second.Close &&
		second.Close < first.Close &&
		third.Close < second.Close
}
