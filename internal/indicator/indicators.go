package indicator

import (
	"errors"
	"fmt"
	"math"

	"signal-trading-bot/internal/market"
)

// ErrInsufficientData is returned when a candle window is shorter than an
// indicator's minimum lookback. Always recoverable by supplying more candles.
var ErrInsufficientData = errors.New("insufficient candle data")

func insufficient(indicator string, need, got int) error {
	return fmt.Errorf("%w: %s needs %d candles, got %d", ErrInsufficientData, indicator, need, got)
}

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the simple moving average of the trailing period.
func SMA(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMASeries computes the exponential moving average over values, seeded with
// the SMA of the first period. Entries before index period-1 are zero and
// not meaningful.
func EMASeries(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	out := make([]float64, len(values))
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i] * multiplier) + (out[i-1] * (1 - multiplier))
	}
	return out
}

// EMA returns the latest exponential moving average of the closes.
func EMA(candles []market.Candle, period int) (float64, error) {
	if len(candles) < period {
		return 0, insufficient("EMA", period, len(candles))
	}
	series := EMASeries(market.Closes(candles), period)
	return series[len(series)-1], nil
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSI calculates the Relative Strength Index with Wilder smoothing.
func RSI(candles []market.Candle, period int) (float64, error) {
	series, err := RSISeries(candles, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// RSISeries computes the RSI value at every index from period onward, using
// Wilder's smoothing over the full window. Entries before index period are
// 50 (neutral placeholder) and not meaningful.
func RSISeries(candles []market.Candle, period int) ([]float64, error) {
	if len(candles) < period+1 {
		return nil, insufficient("RSI", period+1, len(candles))
	}

	out := make([]float64, len(candles))
	for i := 0; i < period; i++ {
		out[i] = 50
	}

	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		// A perfectly flat tape has no gains either; read it as neutral.
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// MACDResult holds the MACD line, signal line, and histogram.
type MACDResult struct {
	Value     float64
	Signal    float64
	Histogram float64
}

// MACD calculates MACD with a true EMA signal line over the MACD series.
func MACD(candles []market.Candle, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, error) {
	macdLine, err := MACDLineSeries(candles, fastPeriod, slowPeriod)
	if err != nil {
		return MACDResult{}, err
	}

	value := macdLine[len(macdLine)-1]

	// The signal line is an EMA over the MACD series. When the window holds
	// fewer MACD points than the signal period, fall back to their mean so a
	// minimum-length window still yields a complete result.
	var signal float64
	if len(macdLine) >= signalPeriod {
		signalSeries := EMASeries(macdLine, signalPeriod)
		signal = signalSeries[len(signalSeries)-1]
	} else {
		signal = SMA(macdLine, len(macdLine))
	}

	return MACDResult{
		Value:     value,
		Signal:    signal,
		Histogram: value - signal,
	}, nil
}

// MACDLineSeries computes the MACD line (fast EMA minus slow EMA) for every
// candle from index slowPeriod-1 onward, returned as a compact slice whose
// last element aligns with the last candle.
func MACDLineSeries(candles []market.Candle, fastPeriod, slowPeriod int) ([]float64, error) {
	if len(candles) < slowPeriod {
		return nil, insufficient("MACD", slowPeriod, len(candles))
	}

	closes := market.Closes(candles)
	fast := EMASeries(closes, fastPeriod)
	slow := EMASeries(closes, slowPeriod)

	out := make([]float64, 0, len(candles)-slowPeriod+1)
	for i := slowPeriod - 1; i < len(candles); i++ {
		out = append(out, fast[i]-slow[i])
	}
	return out, nil
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerResult holds the three Bollinger band prices.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger calculates Bollinger Bands over the trailing period.
func Bollinger(candles []market.Candle, period int, stdDevMultiplier float64) (BollingerResult, error) {
	if len(candles) < period {
		return BollingerResult{}, insufficient("Bollinger", period, len(candles))
	}

	closes := market.Closes(candles)
	middle := SMA(closes, period)

	variance := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return BollingerResult{
		Upper:  middle + stdDev*stdDevMultiplier,
		Middle: middle,
		Lower:  middle - stdDev*stdDevMultiplier,
	}, nil
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// ATR calculates the Average True Range over the trailing period.
func ATR(candles []market.Candle, period int) (float64, error) {
	if len(candles) < period+1 {
		return 0, insufficient("ATR", period+1, len(candles))
	}

	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		trSum += trueRange(candles[i], candles[i-1])
	}
	return trSum / float64(period), nil
}

func trueRange(current, prev market.Candle) float64 {
	tr := current.High - current.Low
	if hc := math.Abs(current.High - prev.Close); hc > tr {
		tr = hc
	}
	if lc := math.Abs(current.Low - prev.Close); lc > tr {
		tr = lc
	}
	return tr
}

// ============================================================================
// ADX (Average Directional Index)
// ============================================================================

// ADX calculates the Average Directional Index from Wilder-smoothed
// directional movement. With a window barely above the minimum the DX
// history is short and the result leans on fewer samples.
func ADX(candles []market.Candle, period int) (float64, error) {
	if len(candles) < period+1 {
		return 0, insufficient("ADX", period+1, len(candles))
	}

	n := len(candles)
	smTR, smPlusDM, smMinusDM := 0.0, 0.0, 0.0

	// Seed the Wilder sums over the first period of movements.
	for i := 1; i <= period; i++ {
		tr, plusDM, minusDM := directionalMovement(candles[i], candles[i-1])
		smTR += tr
		smPlusDM += plusDM
		smMinusDM += minusDM
	}

	dxSum, dxCount := 0.0, 0
	if dx := dxValue(smPlusDM, smMinusDM, smTR); !math.IsNaN(dx) {
		dxSum += dx
		dxCount++
	}

	adx := 0.0
	for i := period + 1; i < n; i++ {
		tr, plusDM, minusDM := directionalMovement(candles[i], candles[i-1])
		smTR = smTR - smTR/float64(period) + tr
		smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM
		smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM

		dx := dxValue(smPlusDM, smMinusDM, smTR)
		if math.IsNaN(dx) {
			continue
		}
		dxCount++
		if dxCount <= period {
			dxSum += dx
			adx = dxSum / float64(dxCount)
		} else {
			adx = (adx*float64(period-1) + dx) / float64(period)
		}
	}

	if dxCount == 0 {
		return 0, nil
	}
	if dxCount <= period {
		adx = dxSum / float64(dxCount)
	}
	return adx, nil
}

func directionalMovement(current, prev market.Candle) (tr, plusDM, minusDM float64) {
	upMove := current.High - prev.High
	downMove := prev.Low - current.Low
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}
	return trueRange(current, prev), plusDM, minusDM
}

func dxValue(smPlusDM, smMinusDM, smTR float64) float64 {
	if smTR == 0 {
		return math.NaN()
	}
	plusDI := 100 * smPlusDM / smTR
	minusDI := 100 * smMinusDM / smTR
	sum := plusDI + minusDI
	if sum == 0 {
		return math.NaN()
	}
	return 100 * math.Abs(plusDI-minusDI) / sum
}

// ============================================================================
// VOLUME
// ============================================================================

// VolumeRatio returns the last candle's volume relative to the average of
// the preceding period candles.
func VolumeRatio(candles []market.Candle, period int) (float64, error) {
	if len(candles) < period+1 {
		return 0, insufficient("volume ratio", period+1, len(candles))
	}

	sum := 0.0
	for i := len(candles) - period - 1; i < len(candles)-1; i++ {
		sum += candles[i].Volume
	}
	avg := sum / float64(period)
	if avg == 0 {
		return 0, nil
	}
	return candles[len(candles)-1].Volume / avg, nil
}

// ============================================================================
// MOMENTUM
// ============================================================================

// Momentum returns the percentage price change over the trailing period.
func Momentum(candles []market.Candle, period int) (float64, error) {
	if len(candles) < period+1 {
		return 0, insufficient("momentum", period+1, len(candles))
	}
	current := candles[len(candles)-1].Close
	past := candles[len(candles)-period-1].Close
	if past == 0 {
		return 0, nil
	}
	return (current - past) / past * 100, nil
}
