package indicator

import (
	"errors"
	"math"
	"testing"

	"signal-trading-bot/internal/market"
)

// flatSeries builds n identical candles.
func flatSeries(n int, price float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime: int64(i+1) * 60_000,
			Open:     price, High: price + 0.1, Low: price - 0.1, Close: price,
			Volume: 1000,
		}
	}
	return candles
}

// trendSeries builds n candles closing step higher (or lower) each bar.
func trendSeries(n int, start, step float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		close := start + step*float64(i)
		open := close - step
		high := math.Max(open, close) + 0.2
		low := math.Min(open, close) - 0.2
		candles[i] = market.Candle{
			OpenTime: int64(i+1) * 60_000,
			Open:     open, High: high, Low: low, Close: close,
			Volume: 1000,
		}
	}
	return candles
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := SMA(values, 5); got != 3 {
		t.Errorf("SMA(1..5, 5) = %v, want 3", got)
	}
	if got := SMA(values, 2); got != 4.5 {
		t.Errorf("SMA trailing 2 = %v, want 4.5", got)
	}
	if got := SMA(values, 6); got != 0 {
		t.Errorf("short input should yield 0, got %v", got)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	ema, err := EMA(flatSeries(30, 100), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ema-100) > 1e-9 {
		t.Errorf("EMA of a constant series must equal the constant, got %v", ema)
	}
}

func TestEMATracksTrend(t *testing.T) {
	candles := trendSeries(60, 100, 1)
	fast, err := EMA(candles, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slow, err := EMA(candles, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fast <= slow {
		t.Errorf("in an uptrend the fast EMA must lead: fast %v, slow %v", fast, slow)
	}
}

func TestRSIDirection(t *testing.T) {
	up, err := RSI(trendSeries(40, 100, 1), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up <= 70 {
		t.Errorf("steady uptrend should read overbought, got %v", up)
	}

	down, err := RSI(trendSeries(40, 200, -1), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if down >= 30 {
		t.Errorf("steady downtrend should read oversold, got %v", down)
	}
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	rsi, err := RSI(flatSeries(40, 100), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rsi != 50 {
		t.Errorf("flat series should read 50, got %v", rsi)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, err := RSI(flatSeries(14, 100), 14); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestMACDHistogramSign(t *testing.T) {
	macd, err := MACD(trendSeries(60, 100, 1), 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if macd.Value <= 0 {
		t.Errorf("uptrend MACD line should be positive, got %v", macd.Value)
	}

	flat, err := MACD(flatSeries(60, 100), 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flat.Value != 0 || flat.Histogram != 0 {
		t.Errorf("flat series MACD should be zero, got %+v", flat)
	}
}

func TestMACDMinimumWindow(t *testing.T) {
	// Exactly 26 candles: only one MACD point exists, the signal falls back
	// to the mean but a complete result still comes back.
	macd, err := MACD(trendSeries(26, 100, 0.5), 12, 26, 9)
	if err != nil {
		t.Fatalf("minimum window must not fail: %v", err)
	}
	if macd.Value == 0 {
		t.Error("expected a nonzero MACD line on a trending minimum window")
	}

	if _, err := MACD(trendSeries(25, 100, 0.5), 12, 26, 9); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("25 candles should be insufficient, got %v", err)
	}
}

func TestBollingerBands(t *testing.T) {
	flat, err := Bollinger(flatSeries(30, 100), 20, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flat.Upper != 100 || flat.Middle != 100 || flat.Lower != 100 {
		t.Errorf("zero-variance series should collapse the bands, got %+v", flat)
	}

	varied := trendSeries(30, 100, 1)
	bb, err := Bollinger(varied, 20, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(bb.Lower < bb.Middle && bb.Middle < bb.Upper) {
		t.Errorf("band ordering violated: %+v", bb)
	}
}

func TestATR(t *testing.T) {
	// Flat candles with a constant 0.2 high-low range.
	atr, err := ATR(flatSeries(30, 100), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(atr-0.2) > 1e-9 {
		t.Errorf("expected ATR 0.2, got %v", atr)
	}
}

func TestADXTrendVsChop(t *testing.T) {
	trending, err := ADX(trendSeries(60, 100, 1), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	choppy := make([]market.Candle, 60)
	for i := range choppy {
		price := 100.0
		if i%2 == 0 {
			price = 101
		}
		choppy[i] = market.Candle{
			OpenTime: int64(i+1) * 60_000,
			Open:     price, High: price + 1, Low: price - 1, Close: price,
			Volume: 1000,
		}
	}
	chop, err := ADX(choppy, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trending < 0 || trending > 100 || chop < 0 || chop > 100 {
		t.Fatalf("ADX out of range: trending %v, chop %v", trending, chop)
	}
	if trending <= chop {
		t.Errorf("a steady trend must out-read chop: trending %v, chop %v", trending, chop)
	}
	if trending <= 25 {
		t.Errorf("a steady one-way trend should classify as trending, got ADX %v", trending)
	}
}

func TestVolumeRatio(t *testing.T) {
	candles := flatSeries(30, 100)
	candles[len(candles)-1].Volume = 2000

	ratio, err := VolumeRatio(candles, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ratio-2) > 1e-9 {
		t.Errorf("double volume should read ratio 2, got %v", ratio)
	}
}

func TestMomentum(t *testing.T) {
	candles := flatSeries(30, 100)
	candles[len(candles)-1].Close = 110

	pct, err := Momentum(candles, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(pct-10) > 1e-9 {
		t.Errorf("expected +10%% momentum, got %v", pct)
	}
}

func BenchmarkRSI(b *testing.B) {
	candles := trendSeries(200, 100, 0.3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = RSI(candles, 14)
	}
}

func BenchmarkADX(b *testing.B) {
	candles := trendSeries(200, 100, 0.3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ADX(candles, 14)
	}
}
