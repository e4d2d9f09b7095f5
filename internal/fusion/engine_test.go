package fusion

import (
	"math"
	"reflect"
	"testing"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/indicator"
	"signal-trading-bot/internal/market"

	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	return &config.Config{
		Indicator: config.IndicatorConfig{
			RSIPeriod:     14,
			RSIOversold:   30,
			RSIOverbought: 70,

			MACDFastPeriod:   12,
			MACDSlowPeriod:   26,
			MACDSignalPeriod: 9,

			BollingerPeriod:       20,
			BollingerStdDev:       2.0,
			BollingerProximityPct: 1.0,

			ATRPeriod:         14,
			HighVolatilityPct: 1.5,

			ADXPeriod:        14,
			ADXTrendingLevel: 25,

			VolumePeriod:       20,
			VolumeAboveAverage: 1.2,

			DivergenceLookback: 20,
		},
		Scalp: config.ScalpConfig{
			MinConfidence:     60,
			FibTolerancePct:   2.0,
			HarmonicTolerance: 1.0,
			SwingLookback:     3,
		},
		Swing: config.SwingConfig{
			MinConfidence:     55,
			FibTolerancePct:   1.0,
			HarmonicTolerance: 1.0,
			SwingLookback:     5,
			FastEMAPeriod:     20,
			SlowEMAPeriod:     50,
			MomentumPeriod:    10,
		},
	}
}

func testEngine() *Engine {
	return NewEngine(testConfig(), zerolog.Nop())
}

// genCandles builds a deterministic oscillating series around a gentle
// uptrend, long enough for every indicator.
func genCandles(n int) []market.Candle {
	candles := make([]market.Candle, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)*0.2 + 2*math.Sin(float64(i)/4)
		open := base
		close := base + 0.3*math.Cos(float64(i)/3)
		high := math.Max(open, close) + 0.5
		low := math.Min(open, close) - 0.5
		candles[i] = market.Candle{
			OpenTime: int64(i+1) * 60_000,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
			Volume:   1000 + 50*math.Sin(float64(i)/5),
		}
	}
	return candles
}

func TestResolveScalpDirection(t *testing.T) {
	cases := []struct {
		name        string
		candlestick market.Direction
		confluence  market.Direction
		want        market.Direction
	}{
		{"conflict forces neutral", market.Bullish, market.Bearish, market.Neutral},
		{"conflict reversed", market.Bearish, market.Bullish, market.Neutral},
		{"candlestick priority", market.Bullish, market.Bullish, market.Bullish},
		{"candlestick only", market.Bearish, market.Neutral, market.Bearish},
		{"confluence fallback", market.Neutral, market.Bullish, market.Bullish},
		{"both neutral", market.Neutral, market.Neutral, market.Neutral},
	}
	for _, tc := range cases {
		if got := resolveScalpDirection(tc.candlestick, tc.confluence); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestScoreConfluence(t *testing.T) {
	snap := &indicator.Snapshot{}
	snap.RSI.Oversold = true
	snap.MACD.Bullish = true
	snap.Bollinger.NearLower = true
	snap.RSIDivergence.Detected = true
	snap.MACDDivergence.Detected = true

	read := scoreConfluence(snap)
	if read.Direction != market.Bullish {
		t.Errorf("all-bullish snapshot: expected BULLISH, got %s", read.Direction)
	}
	if read.Strength != 100 {
		t.Errorf("full one-sided vote should saturate at 100, got %v", read.Strength)
	}

	snap = &indicator.Snapshot{}
	snap.RSI.Overbought = true
	snap.MACD.Bearish = true

	read = scoreConfluence(snap)
	if read.Direction != market.Bearish {
		t.Errorf("bearish snapshot: expected BEARISH, got %s", read.Direction)
	}
	if math.Abs(read.Strength-4.0/confluenceMaxVotes*100) > 1e-9 {
		t.Errorf("expected strength %v, got %v", 4.0/confluenceMaxVotes*100, read.Strength)
	}

	if read = scoreConfluence(&indicator.Snapshot{}); read.Direction != market.Neutral || read.Strength != 0 {
		t.Errorf("empty snapshot should be neutral/0, got %s/%v", read.Direction, read.Strength)
	}
}

func TestResolveSwingDirection(t *testing.T) {
	cases := []struct {
		name        string
		trend       trendRead
		momentum    momentumRead
		candlestick market.Direction
		wantDir     market.Direction
		wantQuality Quality
	}{
		{
			name:        "aligned with candlestick confirmation",
			trend:       trendRead{Direction: market.Bullish, Strength: 60},
			momentum:    momentumRead{Direction: market.Bullish, Score: 50},
			candlestick: market.Bullish,
			wantDir:     market.Bullish,
			wantQuality: QualityStrong,
		},
		{
			name:        "aligned without candlestick",
			trend:       trendRead{Direction: market.Bullish, Strength: 60},
			momentum:    momentumRead{Direction: market.Bullish, Score: 50},
			candlestick: market.Neutral,
			wantDir:     market.Bullish,
			wantQuality: QualityModerate,
		},
		{
			name:        "dominant trend with flat momentum",
			trend:       trendRead{Direction: market.Bearish, Strength: 80},
			momentum:    momentumRead{Direction: market.Neutral, Score: 10},
			candlestick: market.Neutral,
			wantDir:     market.Bearish,
			wantQuality: QualityModerate,
		},
		{
			name:        "dominant trend opposed by momentum",
			trend:       trendRead{Direction: market.Bullish, Strength: 80},
			momentum:    momentumRead{Direction: market.Bearish, Score: 70},
			candlestick: market.Neutral,
			wantDir:     market.Neutral,
			wantQuality: QualityWeak,
		},
		{
			name:        "momentum only",
			trend:       trendRead{Direction: market.Neutral, Strength: 20},
			momentum:    momentumRead{Direction: market.Bullish, Score: 70},
			candlestick: market.Neutral,
			wantDir:     market.Bullish,
			wantQuality: QualityModerate,
		},
		{
			name:        "aligned but weak trend falls through to momentum",
			trend:       trendRead{Direction: market.Bullish, Strength: 40},
			momentum:    momentumRead{Direction: market.Bullish, Score: 70},
			candlestick: market.Neutral,
			wantDir:     market.Bullish,
			wantQuality: QualityModerate,
		},
		{
			name:        "nothing qualifies",
			trend:       trendRead{Direction: market.Neutral, Strength: 10},
			momentum:    momentumRead{Direction: market.Bullish, Score: 30},
			candlestick: market.Bullish,
			wantDir:     market.Neutral,
			wantQuality: QualityWeak,
		},
	}

	for _, tc := range cases {
		dir, quality := resolveSwingDirection(tc.trend, tc.momentum, tc.candlestick)
		if dir != tc.wantDir || quality != tc.wantQuality {
			t.Errorf("%s: got %s/%s, want %s/%s", tc.name, dir, quality, tc.wantDir, tc.wantQuality)
		}
	}
}

func TestAnalyzeScalpIdempotent(t *testing.T) {
	e := testEngine()
	candles := genCandles(80)

	first := e.AnalyzeScalp("BTCUSDT", candles)
	second := e.AnalyzeScalp("BTCUSDT", candles)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical windows must produce identical results:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeScalpShortWindowDegrades(t *testing.T) {
	e := testEngine()
	candles := genCandles(10)

	result := e.AnalyzeScalp("BTCUSDT", candles)

	if result.Components.Confluence.Err == "" {
		t.Error("a window too short for indicators should mark the confluence component with an error")
	}
	if result.Components.Confluence.Score != 0 {
		t.Errorf("failed component must contribute zero, got %v", result.Components.Confluence.Score)
	}
	if result.CurrentPrice != candles[len(candles)-1].Close {
		t.Errorf("result should still carry the current price, got %v", result.CurrentPrice)
	}
}

func TestMeetsThresholdPolicyAsymmetry(t *testing.T) {
	// Zero minimums isolate the direction requirement: on a window that
	// resolves NEUTRAL, the scalp policy still meets its threshold, the
	// swing policy does not.
	cfg := testConfig()
	cfg.Scalp.MinConfidence = 0
	cfg.Swing.MinConfidence = 0
	e := NewEngine(cfg, zerolog.Nop())

	candles := make([]market.Candle, 80)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime: int64(i+1) * 60_000,
			Open:     100, High: 100.1, Low: 99.9, Close: 100,
			Volume: 1000,
		}
	}

	scalp := e.AnalyzeScalp("BTCUSDT", candles)
	if scalp.FinalSignal != market.Neutral {
		t.Fatalf("flat tape should be neutral, got %s", scalp.FinalSignal)
	}
	if !scalp.MeetsThreshold {
		t.Error("scalp threshold must not require a direction")
	}

	swing := e.AnalyzeSwing("BTCUSDT", candles)
	if swing.FinalSignal != market.Neutral {
		t.Fatalf("flat tape should be neutral, got %s", swing.FinalSignal)
	}
	if swing.MeetsThreshold {
		t.Error("swing threshold requires a non-neutral direction")
	}
}

func BenchmarkAnalyzeScalp(b *testing.B) {
	e := testEngine()
	candles := genCandles(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.AnalyzeScalp("BTCUSDT", candles)
	}
}

func BenchmarkAnalyzeSwing(b *testing.B) {
	e := testEngine()
	candles := genCandles(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.AnalyzeSwing("BTCUSDT", candles)
	}
}
