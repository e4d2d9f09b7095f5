// Package feed supplies candle windows to the decision core. The core
// never caches candles beyond the current call; feeds own all I/O.
package feed

import (
	"context"
	"fmt"

	"signal-trading-bot/internal/market"
)

// Feed produces the trailing candle window for a symbol, newest last.
type Feed interface {
	Candles(ctx context.Context, symbol string, limit int) ([]market.Candle, error)
}

// HistoryFeed replays a preloaded candle series, for backtests. Advance
// moves the cursor one candle forward; Candles returns the trailing window
// ending at the cursor.
type HistoryFeed struct {
	candles []market.Candle
	cursor  int
}

// NewHistoryFeed validates the series and positions the cursor at the
// first candle.
func NewHistoryFeed(candles []market.Candle) (*HistoryFeed, error) {
	if err := market.ValidateSeries(candles); err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("history feed needs at least one candle")
	}
	return &HistoryFeed{candles: candles, cursor: 1}, nil
}

// Candles returns up to limit candles ending at the cursor.
func (f *HistoryFeed) Candles(_ context.Context, _ string, limit int) ([]market.Candle, error) {
	end := f.cursor
	start := end - limit
	if start < 0 {
		start = 0
	}
	return f.candles[start:end], nil
}

// Advance moves the cursor forward. Returns false at the end of history.
func (f *HistoryFeed) Advance() bool {
	if f.cursor >= len(f.candles) {
		return false
	}
	f.cursor++
	return f.cursor <= len(f.candles)
}

// Len is the total number of candles loaded.
func (f *HistoryFeed) Len() int {
	return len(f.candles)
}
