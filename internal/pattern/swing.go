package pattern

import (
	"signal-trading-bot/internal/market"
)

// SwingPoint is a local price extremum relative to a lookback window on
// both sides.
type SwingPoint struct {
	Price       float64 `json:"price"`
	CandleIndex int     `json:"candleIndex"`
	IsHigh      bool    `json:"isHigh"`
}

// FindSwingHighs identifies swing highs: candles whose high strictly
// exceeds the high of every candle within lookback positions on both
// sides. Ties never produce a swing point, which keeps flat tops from
// double-counting.
func FindSwingHighs(candles []market.Candle, lookback int) []SwingPoint {
	var swings []SwingPoint

	for i := lookback; i < len(candles)-lookback; i++ {
		isSwing := true
		for j := i - lookback; j <= i+lookback; j++ {
			if j != i && candles[j].High >= candles[i].High {
				isSwing = false
				break
			}
		}
		if isSwing {
			swings = append(swings, SwingPoint{
				Price:       candles[i].High,
				CandleIndex: i,
				IsHigh:      true,
			})
		}
	}
	return swings
}

// FindSwingLows identifies swing lows, symmetric to FindSwingHighs.
func FindSwingLows(candles []market.Candle, lookback int) []SwingPoint {
	var swings []SwingPoint

	for i := lookback; i < len(candles)-lookback; i++ {
		isSwing := true
		for j := i - lookback; j <= i+lookback; j++ {
			if j != i && candles[j].Low <= candles[i].Low {
				isSwing = false
				break
			}
		}
		if isSwing {
			swings = append(swings, SwingPoint{
				Price:       candles[i].Low,
				CandleIndex: i,
				IsHigh:      false,
			})
		}
	}
	return swings
}

// RecentExtrema returns the most recent count swing points (highs and lows
// merged, chronological order). Returns fewer when the window does not hold
// enough extrema.
func RecentExtrema(candles []market.Candle, lookback, count int) []SwingPoint {
	highs := FindSwingHighs(candles, lookback)
	lows := FindSwingLows(candles, lookback)

	merged := make([]SwingPoint, 0, len(highs)+len(lows))
	hi, li := 0, 0
	for hi < len(highs) || li < len(lows) {
		switch {
		case hi >= len(highs):
			merged = append(merged, lows[li])
			li++
		case li >= len(lows):
			merged = append(merged, highs[hi])
			hi++
		case highs[hi].CandleIndex <= lows[li].CandleIndex:
			merged = append(merged, highs[hi])
			hi++
		default:
			merged = append(merged, lows[li])
			li++
		}
	}

	if len(merged) > count {
		merged = merged[len(merged)-count:]
	}
	return merged
}

// RecentSwingRange returns the highest swing high and lowest swing low in
// the window, for building Fibonacci ranges. ok is false when the window
// holds no swing pair.
func RecentSwingRange(candles []market.Candle, lookback int) (high, low float64, ok bool) {
	highs := FindSwingHighs(candles, lookback)
	lows := FindSwingLows(candles, lookback)
	if len(highs) == 0 || len(lows) == 0 {
		return 0, 0, false
	}

	high = highs[0].Price
	for _, s := range highs[1:] {
		if s.Price > high {
			high = s.Price
		}
	}
	low = lows[0].Price
	for _, s := range lows[1:] {
		if s.Price < low {
			low = s.Price
		}
	}
	return high, low, high > low
}
