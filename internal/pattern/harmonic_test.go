package pattern

import (
	"math"
	"testing"

	"signal-trading-bot/internal/market"
)

func TestGartleyMatch(t *testing.T) {
	// Bullish Gartley: B retraces ~62% of XA, C retraces ~49% of AB, and the
	// 0.786 projection puts D near 148.6.
	pivots := XABC{X: 100, A: 161.8, B: 138.46, C: 150}

	d := NewHarmonicDetector(nil, 0.5)
	matches := d.Match(pivots, 148.6)

	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	m := matches[0]
	if m.Pattern != HarmonicGartley {
		t.Fatalf("expected Gartley, got %s", m.Pattern)
	}
	if m.Direction != market.Bullish {
		t.Errorf("C above X should imply a bullish completion, got %s", m.Direction)
	}
	if math.Abs(m.ABRatio-0.622) > 0.005 {
		t.Errorf("AB ratio: expected ~0.622, got %v", m.ABRatio)
	}
	if math.Abs(m.BCRatio-0.494) > 0.005 {
		t.Errorf("BC ratio: expected ~0.494, got %v", m.BCRatio)
	}
	if math.Abs(m.DTargets[0]-148.575) > 0.01 {
		t.Errorf("0.786 projection: expected ~148.575, got %v", m.DTargets[0])
	}
	if !m.AtCompletion {
		t.Error("price 148.6 should sit within tolerance of the D target")
	}
}

func TestBatMatch(t *testing.T) {
	// B retraces 45% of XA, C retraces 50% of AB: Bat territory, outside
	// both Gartley and Butterfly AB bands.
	pivots := XABC{X: 100, A: 161.8, B: 127.81, C: 144.81}

	matches := NewHarmonicDetector(nil, 0.5).Match(pivots, 130)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	if matches[0].Pattern != HarmonicBat {
		t.Errorf("expected Bat, got %s", matches[0].Pattern)
	}
	if matches[0].AtCompletion {
		t.Error("price 130 is far from both D targets")
	}
}

func TestBearishDirection(t *testing.T) {
	// Mirror geometry: A below X, C below X.
	pivots := XABC{X: 161.8, A: 100, B: 123.34, C: 111.8}

	matches := NewHarmonicDetector(nil, 0.5).Match(pivots, 113)
	if len(matches) == 0 {
		t.Fatal("expected a match")
	}
	if matches[0].Direction != market.Bearish {
		t.Errorf("C below X should imply a bearish completion, got %s", matches[0].Direction)
	}
}

func TestNoMatchOutsideBands(t *testing.T) {
	// A 20% AB retracement fits no pattern family.
	pivots := XABC{X: 100, A: 161.8, B: 112.36, C: 135}
	if matches := NewHarmonicDetector(nil, 0.5).Match(pivots, 150); matches != nil {
		t.Errorf("expected no matches, got %+v", matches)
	}
}

func TestDegeneratePivots(t *testing.T) {
	if matches := NewHarmonicDetector(nil, 0.5).Match(XABC{X: 100, A: 100, B: 100, C: 100}, 100); matches != nil {
		t.Errorf("zero-length legs must not match, got %+v", matches)
	}
}

func TestFromCandles(t *testing.T) {
	prices := []float64{110, 100, 130, 161.8, 150, 138.46, 145, 150, 148.6}
	candles := make([]market.Candle, len(prices))
	for i, p := range prices {
		candles[i] = flatCandle(p)
	}

	matches := NewHarmonicDetector(nil, 0.5).FromCandles(candles, 1)
	if len(matches) != 1 {
		t.Fatalf("expected one match from the zigzag, got %d", len(matches))
	}
	m := matches[0]
	if m.Pattern != HarmonicGartley {
		t.Errorf("expected Gartley, got %s", m.Pattern)
	}
	if m.Points.X != 100 || m.Points.A != 161.8 || m.Points.B != 138.46 || m.Points.C != 150 {
		t.Errorf("pivot extraction wrong: %+v", m.Points)
	}
	if !m.AtCompletion {
		t.Error("last close 148.6 should complete the pattern")
	}
}

func TestFromCandlesRequiresAlternatingExtrema(t *testing.T) {
	// A wide lookback leaves too few interior extrema to form XABC.
	prices := []float64{100, 120, 110, 130, 112, 125, 105, 115}
	candles := make([]market.Candle, len(prices))
	for i, p := range prices {
		candles[i] = flatCandle(p)
	}

	if matches := NewHarmonicDetector(nil, 0.5).FromCandles(candles, 3); matches != nil {
		t.Errorf("expected no matches without four alternating extrema, got %+v", matches)
	}
}

func TestSwingDetectionStrictness(t *testing.T) {
	// Flat tops tie with neighbors and must not register as swings.
	prices := []float64{100, 110, 110, 100, 95}
	candles := make([]market.Candle, len(prices))
	for i, p := range prices {
		candles[i] = flatCandle(p)
	}

	if highs := FindSwingHighs(candles, 1); len(highs) != 0 {
		t.Errorf("tied highs should not produce swing points, got %+v", highs)
	}
	if lows := FindSwingLows(candles, 1); len(lows) != 1 || lows[0].Price != 100 {
		t.Errorf("expected the single 100 low at index 3, got %+v", lows)
	}
}
