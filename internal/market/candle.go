package market

import (
	"errors"
	"fmt"
	"time"
)

// Candle represents one OHLCV interval. Candle sequences are ordered oldest
// first, newest last, and are never mutated by the decision core.
type Candle struct {
	OpenTime int64   `json:"openTime"` // Unix milliseconds
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Time returns the candle open time as a time.Time.
func (c Candle) Time() time.Time {
	return time.Unix(c.OpenTime/1000, (c.OpenTime%1000)*int64(time.Millisecond))
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Body returns the absolute body size.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// UpperShadow returns the wick above the body.
func (c Candle) UpperShadow() float64 {
	if c.Close > c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

// LowerShadow returns the wick below the body.
func (c Candle) LowerShadow() float64 {
	if c.Close > c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Direction is the directional read of a signal or position.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// Opposite returns the opposing direction; NEUTRAL has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case Bullish:
		return Bearish
	case Bearish:
		return Bullish
	default:
		return Neutral
	}
}

// ErrInvalidSeries is returned when a candle sequence violates the
// OHLC ordering or timestamp invariants.
var ErrInvalidSeries = errors.New("invalid candle series")

// ValidateSeries checks the OHLC bounds of every candle and that open times
// are strictly increasing.
func ValidateSeries(candles []Candle) error {
	for i, c := range candles {
		maxBody := c.Open
		if c.Close > maxBody {
			maxBody = c.Close
		}
		minBody := c.Open
		if c.Close < minBody {
			minBody = c.Close
		}
		if c.High < maxBody || c.Low > minBody {
			return fmt.Errorf("%w: candle %d violates high/low bounds", ErrInvalidSeries, i)
		}
		if i > 0 && c.OpenTime <= candles[i-1].OpenTime {
			return fmt.Errorf("%w: candle %d timestamp not increasing", ErrInvalidSeries, i)
		}
	}
	return nil
}

// Closes extracts the close prices of a candle sequence.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the close of the newest candle, or 0 for an empty series.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
