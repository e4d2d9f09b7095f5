package indicator

import (
	"signal-trading-bot/internal/market"
)

// Divergence records a hidden bullish divergence read for one oscillator.
// Only the bullish-hidden variant exists: price printing a fresh lower low
// while the oscillator refuses to confirm it. This is a continuation signal,
// not a reversal signal, and no bearish-hidden counterpart is defined.
type Divergence struct {
	Detected bool    `json:"detected"`
	Strength float64 `json:"strength"` // 0-100
}

// HiddenBullishRSI detects hidden bullish divergence between price and RSI
// over the trailing lookback candles.
func HiddenBullishRSI(candles []market.Candle, rsiPeriod, lookback int) (Divergence, error) {
	series, err := RSISeries(candles, rsiPeriod)
	if err != nil {
		return Divergence{}, err
	}
	return hiddenBullish(market.Closes(candles), series, lookback), nil
}

// HiddenBullishMACD detects hidden bullish divergence between price and the
// MACD line over the trailing lookback candles.
func HiddenBullishMACD(candles []market.Candle, fastPeriod, slowPeriod, lookback int) (Divergence, error) {
	macdLine, err := MACDLineSeries(candles, fastPeriod, slowPeriod)
	if err != nil {
		return Divergence{}, err
	}
	// MACDLineSeries is compact; align it against the tail of the closes.
	closes := market.Closes(candles)
	closes = closes[len(closes)-len(macdLine):]
	return hiddenBullish(closes, macdLine, lookback), nil
}

// hiddenBullish scans the trailing lookback window: it tracks the most
// recent price low and the most recent oscillator low independently, and
// fires only when the latest close sits below the candle preceding the
// tracked price low while the oscillator reads above its own prior low.
// Strength scales linearly with the oscillator improvement relative to the
// oscillator's range in the window, clamped to [0,100].
func hiddenBullish(closes, oscillator []float64, lookback int) Divergence {
	n := len(closes)
	if len(oscillator) < n {
		n = len(oscillator)
		closes = closes[len(closes)-n:]
		oscillator = oscillator[len(oscillator)-n:]
	}
	if n < 3 {
		return Divergence{}
	}

	start := n - lookback
	if start < 0 {
		start = 0
	}

	priceLowIdx := start
	oscLowIdx := start
	oscMin, oscMax := oscillator[start], oscillator[start]
	for i := start; i < n; i++ {
		if closes[i] <= closes[priceLowIdx] {
			priceLowIdx = i
		}
		if oscillator[i] <= oscillator[oscLowIdx] {
			oscLowIdx = i
		}
		if oscillator[i] < oscMin {
			oscMin = oscillator[i]
		}
		if oscillator[i] > oscMax {
			oscMax = oscillator[i]
		}
	}

	// Need a candle preceding the tracked price low to compare against.
	if priceLowIdx == 0 {
		return Divergence{}
	}

	latestClose := closes[n-1]
	latestOsc := oscillator[n-1]

	freshLowerLow := latestClose < closes[priceLowIdx-1]
	oscImproving := latestOsc > oscillator[oscLowIdx]
	if !freshLowerLow || !oscImproving {
		return Divergence{}
	}

	oscRange := oscMax - oscMin
	strength := 100.0
	if oscRange > 0 {
		strength = (latestOsc - oscillator[oscLowIdx]) / oscRange * 100
	}
	if strength > 100 {
		strength = 100
	}
	if strength < 0 {
		strength = 0
	}

	return Divergence{Detected: true, Strength: strength}
}
