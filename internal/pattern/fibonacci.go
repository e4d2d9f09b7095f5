package pattern

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidRange is returned for a degenerate swing (high not above low).
var ErrInvalidRange = errors.New("invalid swing range")

// fibRatios are the ten retracement/extension ratios, ascending.
var fibRatios = []struct {
	Ratio float64
	Label string
}{
	{0, "0%"},
	{0.236, "23.6%"},
	{0.382, "38.2%"},
	{0.5, "50%"},
	{0.618, "61.8%"},
	{0.786, "78.6%"},
	{1.0, "100%"},
	{1.272, "127.2%"},
	{1.618, "161.8%"},
	{2.0, "200%"},
}

// FibLevel is one retracement/extension price level.
type FibLevel struct {
	Ratio float64 `json:"ratio"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// NearbyLevel is a level within tolerance of the current price.
type NearbyLevel struct {
	FibLevel
	Distance float64 `json:"distance"`
}

// ToleranceMode selects what the tolerance percentage is measured against.
// The two calling contexts intentionally differ: the scalp policy measures
// tolerance against the swing range, the swing policy against the current
// price.
type ToleranceMode int

const (
	// ToleranceOfRange: tolerance is a percentage of the swing range
	// (high minus low). Used by the scalp fusion policy.
	ToleranceOfRange ToleranceMode = iota
	// ToleranceOfPrice: tolerance is a percentage of the current price.
	// Used by the swing fusion policy.
	ToleranceOfPrice
)

// FibonacciSignal is the full Fibonacci read against a current price.
type FibonacciSignal struct {
	Levels     []FibLevel    `json:"levels"`
	Nearby     []NearbyLevel `json:"nearby"`
	HasSupport bool          `json:"hasSupport"`
}

// FibonacciLevels computes the ten levels from a swing low/high pair. The
// 0% level equals the swing low and the 100% level equals the swing high;
// prices increase monotonically with ratio.
func FibonacciLevels(swingHigh, swingLow float64) ([]FibLevel, error) {
	if swingHigh <= swingLow {
		return nil, fmt.Errorf("%w: high %v must exceed low %v", ErrInvalidRange, swingHigh, swingLow)
	}

	span := swingHigh - swingLow
	levels := make([]FibLevel, len(fibRatios))
	for i, r := range fibRatios {
		levels[i] = FibLevel{
			Ratio: r.Ratio,
			Label: r.Label,
			Price: swingLow + span*r.Ratio,
		}
	}
	return levels, nil
}

// AnalyzeFibonacci computes the levels and the nearby set for a current
// price under the given tolerance semantics. The nearby set is sorted by
// distance, closest first. HasSupport reports whether any nearby level sits
// at or below the current price.
func AnalyzeFibonacci(swingHigh, swingLow, currentPrice, tolerancePct float64, mode ToleranceMode) (FibonacciSignal, error) {
	levels, err := FibonacciLevels(swingHigh, swingLow)
	if err != nil {
		return FibonacciSignal{}, err
	}

	var tolerance float64
	switch mode {
	case ToleranceOfRange:
		tolerance = (swingHigh - swingLow) * tolerancePct / 100
	case ToleranceOfPrice:
		tolerance = currentPrice * tolerancePct / 100
	}

	var nearby []NearbyLevel
	hasSupport := false
	for _, lvl := range levels {
		distance := math.Abs(currentPrice - lvl.Price)
		if distance <= tolerance {
			nearby = append(nearby, NearbyLevel{FibLevel: lvl, Distance: distance})
			if lvl.Price <= currentPrice {
				hasSupport = true
			}
		}
	}

	sort.Slice(nearby, func(i, j int) bool { return nearby[i].Distance < nearby[j].Distance })

	return FibonacciSignal{
		Levels:     levels,
		Nearby:     nearby,
		HasSupport: hasSupport,
	}, nil
}
