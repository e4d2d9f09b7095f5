package pattern

import (
	"testing"

	"signal-trading-bot/internal/market"
)

var nextOpenTime int64

func newCandle(open, high, low, close, volume float64) market.Candle {
	nextOpenTime += 60_000
	return market.Candle{
		OpenTime: nextOpenTime,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    close,
		Volume:   volume,
	}
}

func flatCandle(price float64) market.Candle {
	return newCandle(price, price, price, price, 1000)
}

func TestDetectBullishEngulfing(t *testing.T) {
	candles := []market.Candle{
		newCandle(100, 101, 99, 100.5, 1000),
		newCandle(105, 106, 99.5, 100, 1000), // bearish
		newCandle(99, 107, 98.5, 106, 1500),  // engulfs the prior body
	}

	d := NewCandlestickDetector(nil)
	sig := d.Detect(candles)

	if sig.Pattern != PatternBullishEngulfing {
		t.Fatalf("expected %s, got %s", PatternBullishEngulfing, sig.Pattern)
	}
	if sig.Signal != market.Bullish {
		t.Errorf("expected bullish signal, got %s", sig.Signal)
	}
	if sig.Confidence != 30 {
		t.Errorf("expected confidence 30, got %v", sig.Confidence)
	}
}

func TestDetectMorningStarOutweighsLowerTiers(t *testing.T) {
	candles := []market.Candle{
		newCandle(110, 110.5, 99.5, 100, 1000),  // large bearish
		newCandle(100, 100.8, 99.7, 100.5, 800), // small star body
		newCandle(101, 109, 101, 109, 1600),     // bullish close past first midpoint
	}

	d := NewCandlestickDetector(nil)
	sig := d.Detect(candles)

	if sig.Pattern != PatternMorningStar {
		t.Fatalf("expected %s, got %s", PatternMorningStar, sig.Pattern)
	}
	if sig.Confidence != 40 {
		t.Errorf("expected confidence 40, got %v", sig.Confidence)
	}
}

func TestDetectIgnoresPatternsNotOnLastCandle(t *testing.T) {
	candles := []market.Candle{
		newCandle(105, 106, 99.5, 100, 1000),
		newCandle(99, 107, 98.5, 106, 1500), // engulfing completes here
		newCandle(106, 106.4, 105.2, 105.5, 900),
		newCandle(105.5, 106.1, 105, 105.8, 900),
	}

	d := NewCandlestickDetector(nil)
	sig := d.Detect(candles)

	if sig.Pattern != PatternNone {
		t.Errorf("expected no pattern on last candle, got %s", sig.Pattern)
	}
	if sig.Signal != market.Neutral {
		t.Errorf("expected neutral signal, got %s", sig.Signal)
	}
}

func TestHammerShapeContext(t *testing.T) {
	hammerShape := func() market.Candle {
		// body 1, lower shadow 3, no upper shadow
		return newCandle(100, 101, 97, 101, 1000)
	}

	d := NewCandlestickDetector(nil)

	afterDown := []market.Candle{newCandle(103, 103.5, 99.5, 100, 1000), hammerShape()}
	sig := d.Detect(afterDown)
	if sig.Pattern != PatternHammer || sig.Signal != market.Bullish {
		t.Errorf("after a down candle expected bullish Hammer, got %s/%s", sig.Pattern, sig.Signal)
	}

	afterUp := []market.Candle{newCandle(100, 103.5, 99.5, 103, 1000), hammerShape()}
	sig = d.Detect(afterUp)
	if sig.Pattern != PatternHangingMan || sig.Signal != market.Bearish {
		t.Errorf("after an up candle expected bearish Hanging Man, got %s/%s", sig.Pattern, sig.Signal)
	}
}

func TestShootingStarContext(t *testing.T) {
	starShape := func() market.Candle {
		// body 1, upper shadow 3, no lower shadow
		return newCandle(101, 104, 100, 100, 1000)
	}

	d := NewCandlestickDetector(nil)

	afterUp := []market.Candle{newCandle(98, 101.5, 97.5, 101, 1000), starShape()}
	sig := d.Detect(afterUp)
	if sig.Pattern != PatternShootingStar || sig.Signal != market.Bearish {
		t.Errorf("after an up candle expected bearish Shooting Star, got %s/%s", sig.Pattern, sig.Signal)
	}

	afterDown := []market.Candle{newCandle(103, 103.5, 99.5, 100, 1000), starShape()}
	sig = d.Detect(afterDown)
	if sig.Pattern != PatternInvertedHammer || sig.Signal != market.Bullish {
		t.Errorf("after a down candle expected bullish Inverted Hammer, got %s/%s", sig.Pattern, sig.Signal)
	}
}

func TestDojiCarriesZeroConfidence(t *testing.T) {
	candles := []market.Candle{
		newCandle(100, 101, 99, 100.5, 1000),
		newCandle(100.5, 102, 99, 100.52, 1000), // body well under 5% of range
	}

	d := NewCandlestickDetector(nil)
	sig := d.Detect(candles)

	if sig.Pattern != PatternDoji {
		t.Fatalf("expected %s, got %s", PatternDoji, sig.Pattern)
	}
	if sig.Signal != market.Neutral {
		t.Errorf("doji should be neutral, got %s", sig.Signal)
	}
	if sig.Confidence != 0 {
		t.Errorf("doji should carry zero confidence, got %v", sig.Confidence)
	}
}

func TestDetectEmptyWindow(t *testing.T) {
	d := NewCandlestickDetector(nil)
	sig := d.Detect(nil)
	if sig.Pattern != PatternNone || sig.Signal != market.Neutral || sig.Confidence != 0 {
		t.Errorf("empty window should be a no-pattern read, got %+v", sig)
	}
}

func TestWeightOverride(t *testing.T) {
	weights := DefaultWeights()
	weights[PatternBullishEngulfing] = 99

	candles := []market.Candle{
		newCandle(105, 106, 99.5, 100, 1000),
		newCandle(99, 107, 98.5, 106, 1500),
	}

	sig := NewCandlestickDetector(weights).Detect(candles)
	if sig.Confidence != 99 {
		t.Errorf("expected overridden weight 99, got %v", sig.Confidence)
	}
}

func BenchmarkDetect(b *testing.B) {
	d := NewCandlestickDetector(nil)
	candles := make([]market.Candle, 100)
	for i := range candles {
		candles[i] = flatCandle(100 + float64(i%7)*0.3)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Detect(candles)
	}
}
