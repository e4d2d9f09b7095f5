package position

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/market"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		InitialBalance:     10000,
		AllocationFraction: 0.10,
		MaxOpenPositions:   5,
		MaxDrawdown:        0.20,

		ConfidenceLow:       50,
		ConfidenceHigh:      70,
		TakeProfitRatioLow:  1.5,
		TakeProfitRatioHigh: 2.5,

		StopLossPct: 2.0,
	}
}

func testTrailingConfig() config.TrailingConfig {
	return config.TrailingConfig{
		Enabled:            true,
		ActivationFraction: 0.5,
		TrailFraction:      0.3,
	}
}

func newTestManager() *Manager {
	return NewManager(testRiskConfig(), testTrailingConfig(), zerolog.Nop())
}

func bullishRequest(symbol string) OpenRequest {
	return OpenRequest{
		Symbol:     symbol,
		Direction:  market.Bullish,
		EntryPrice: 100,
		StopPrice:  97,
		Confidence: 80,
	}
}

func TestOpenPositionSizingAndTarget(t *testing.T) {
	m := newTestManager()

	trade, err := m.OpenPosition(bullishRequest("BTCUSDT"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trade.Invested != 1000 {
		t.Errorf("10%% of 10000 should be invested, got %v", trade.Invested)
	}
	if trade.PositionSize != 10 {
		t.Errorf("1000 at entry 100 should size 10 units, got %v", trade.PositionSize)
	}
	// Confidence 80 clears the high threshold: ratio 2.5 over a 3-point
	// stop distance.
	if math.Abs(trade.TargetPrice-107.5) > 1e-9 {
		t.Errorf("expected target 107.5, got %v", trade.TargetPrice)
	}
	if trade.Status != StatusOpen {
		t.Errorf("expected OPEN, got %s", trade.Status)
	}
	if trade.ID == "" {
		t.Error("trade must carry an id")
	}
}

func TestClosePositionRealizesPL(t *testing.T) {
	m := newTestManager()
	trade, err := m.OpenPosition(bullishRequest("BTCUSDT"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closed, err := m.ClosePosition(trade.ID, 107.5, ExitTargetHit, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(closed.ProfitLoss-75) > 1e-9 {
		t.Errorf("expected P&L 75, got %v", closed.ProfitLoss)
	}
	if math.Abs(closed.ProfitLossPct-7.5) > 1e-9 {
		t.Errorf("expected 7.5%%, got %v", closed.ProfitLossPct)
	}
	if balance := m.Account().Balance; math.Abs(balance-10075) > 1e-9 {
		t.Errorf("expected balance 10075, got %v", balance)
	}
	if len(m.OpenTrades()) != 0 {
		t.Error("closed trade must leave the open set")
	}
	if len(m.ClosedTrades()) != 1 {
		t.Error("closed trade must enter history")
	}
}

func TestClosePositionBearish(t *testing.T) {
	m := newTestManager()
	trade, err := m.OpenPosition(OpenRequest{
		Symbol:     "ETHUSDT",
		Direction:  market.Bearish,
		EntryPrice: 100,
		StopPrice:  103,
		Confidence: 80,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(trade.TargetPrice-92.5) > 1e-9 {
		t.Errorf("bearish target should sit below entry, got %v", trade.TargetPrice)
	}

	closed, err := m.ClosePosition(trade.ID, 95, ExitTargetHit, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(closed.ProfitLoss-50) > 1e-9 {
		t.Errorf("short from 100 to 95 on 10 units should gain 50, got %v", closed.ProfitLoss)
	}
}

func TestOpenPositionRejections(t *testing.T) {
	m := newTestManager()

	if _, err := m.OpenPosition(OpenRequest{Symbol: "X", Direction: market.Neutral, EntryPrice: 100}); !errors.Is(err, ErrInvalidOpenRequest) {
		t.Errorf("neutral direction: expected ErrInvalidOpenRequest, got %v", err)
	}

	if _, err := m.OpenPosition(bullishRequest("BTCUSDT")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.OpenPosition(bullishRequest("BTCUSDT")); !errors.Is(err, ErrDuplicateSymbol) {
		t.Errorf("expected ErrDuplicateSymbol, got %v", err)
	}
}

func TestPositionCap(t *testing.T) {
	m := newTestManager()

	for i := 0; i < 5; i++ {
		if _, err := m.OpenPosition(bullishRequest(fmt.Sprintf("SYM%d", i))); err != nil {
			t.Fatalf("open %d: unexpected error: %v", i, err)
		}
	}

	balanceBefore := m.Account().Balance
	_, err := m.OpenPosition(bullishRequest("SYM5"))
	if !errors.Is(err, ErrMaxPositionsReached) {
		t.Fatalf("expected ErrMaxPositionsReached, got %v", err)
	}
	if m.Account().Balance != balanceBefore {
		t.Error("a rejected open must not touch the balance")
	}
	if len(m.OpenTrades()) != 5 {
		t.Error("a rejected open must not alter the open set")
	}
}

func TestDrawdownLimit(t *testing.T) {
	m := newTestManager()

	// Three near-total losses drain ~27% of the account, past the 0.20
	// ceiling.
	for i := 0; i < 3; i++ {
		trade, err := m.OpenPosition(bullishRequest("BTCUSDT"))
		if err != nil {
			t.Fatalf("open %d: unexpected error: %v", i, err)
		}
		if _, err := m.ClosePosition(trade.ID, 0.01, ExitStopHit, 0); err != nil {
			t.Fatalf("close %d: unexpected error: %v", i, err)
		}
	}
	if dd := m.Account().Drawdown(); dd <= 0.20 {
		t.Fatalf("fixture should exceed the drawdown ceiling, got %v", dd)
	}

	if _, err := m.OpenPosition(bullishRequest("ETHUSDT")); !errors.Is(err, ErrDrawdownExceeded) {
		t.Errorf("expected ErrDrawdownExceeded, got %v", err)
	}
}

func TestAvailableBalance(t *testing.T) {
	m := newTestManager()
	if _, err := m.OpenPosition(bullishRequest("BTCUSDT")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avail := m.AvailableBalance(); math.Abs(avail-9000) > 1e-9 {
		t.Errorf("expected 9000 available after a 1000 allocation, got %v", avail)
	}
}

func TestCheckExitSignalsStopAndTarget(t *testing.T) {
	m := NewManager(testRiskConfig(), config.TrailingConfig{}, zerolog.Nop())
	trade, err := m.OpenPosition(bullishRequest("BTCUSDT"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signals := m.CheckExitSignals(100, ""); len(signals) != 0 {
		t.Errorf("price inside the band should not signal, got %+v", signals)
	}

	signals := m.CheckExitSignals(96.5, "")
	if len(signals) != 1 || signals[0].Reason != ExitStopHit {
		t.Fatalf("expected STOP_HIT, got %+v", signals)
	}
	if signals[0].TradeID != trade.ID {
		t.Errorf("signal must reference the trade")
	}

	if signals := m.CheckExitSignals(108, ""); len(signals) != 1 || signals[0].Reason != ExitTargetHit {
		t.Errorf("expected TARGET_HIT, got %+v", signals)
	}
}

func TestExitTieBreakFavorsTarget(t *testing.T) {
	// A degenerate trade where one price crosses both stop and target on
	// the same tick: the target check runs last and overrides the stop.
	m := NewManager(testRiskConfig(), config.TrailingConfig{}, zerolog.Nop())
	_, err := m.OpenPosition(OpenRequest{
		Symbol:      "BTCUSDT",
		Direction:   market.Bearish,
		EntryPrice:  100,
		StopPrice:   101,
		TargetPrice: 102, // degenerate override: prices in [101,102] fire both
		Confidence:  60,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signals := m.CheckExitSignals(101.5, "")
	if len(signals) != 1 {
		t.Fatalf("expected one signal, got %+v", signals)
	}
	if signals[0].Reason != ExitTargetHit {
		t.Errorf("simultaneous stop and target must report TARGET_HIT, got %s", signals[0].Reason)
	}
}

func TestTrailingStopMovesOnlyFavorably(t *testing.T) {
	m := newTestManager()
	trade, err := m.OpenPosition(bullishRequest("BTCUSDT"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Target distance 7.5, activation at half of it: price 104 is past the
	// activation point (gain 4 >= 3.75).
	prices := []float64{101, 104, 105, 106, 104.5, 107}
	prevStop := trade.StopPrice
	for _, price := range prices {
		m.CheckExitSignals(price, "BTCUSDT")
		current, ok := m.OpenTrade("BTCUSDT")
		if !ok {
			t.Fatalf("trade should remain open at price %v", price)
		}
		if current.StopPrice < prevStop {
			t.Fatalf("stop moved adversely at price %v: %v -> %v", price, prevStop, current.StopPrice)
		}
		prevStop = current.StopPrice
	}

	if prevStop <= 97 {
		t.Errorf("trailing should have lifted the stop above the original 97, got %v", prevStop)
	}

	current, _ := m.OpenTrade("BTCUSDT")
	if !current.TrailingActive {
		t.Error("trailing should be active after sustained favorable movement")
	}

	// A pullback through the trailed stop reports TRAILING_STOP, not a
	// plain stop.
	signals := m.CheckExitSignals(prevStop-0.01, "BTCUSDT")
	if len(signals) != 1 || signals[0].Reason != ExitTrailingStop {
		t.Errorf("expected TRAILING_STOP, got %+v", signals)
	}
}

func TestTrailingStopBearish(t *testing.T) {
	m := newTestManager()
	trade, err := m.OpenPosition(OpenRequest{
		Symbol:     "ETHUSDT",
		Direction:  market.Bearish,
		EntryPrice: 100,
		StopPrice:  103,
		Confidence: 80, // target 92.5, distance 7.5
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.CheckExitSignals(95, "ETHUSDT") // gain 5 >= 3.75 activates trailing
	current, ok := m.OpenTrade("ETHUSDT")
	if !ok {
		t.Fatal("trade should remain open")
	}
	if current.StopPrice >= trade.StopPrice {
		t.Errorf("bearish trailing must lower the stop: %v -> %v", trade.StopPrice, current.StopPrice)
	}
	want := 95 + 5*0.3
	if math.Abs(current.StopPrice-want) > 1e-9 {
		t.Errorf("expected stop %v, got %v", want, current.StopPrice)
	}
}

func TestClosePositionUnknownTrade(t *testing.T) {
	m := newTestManager()
	if _, err := m.ClosePosition("missing", 100, ExitStopHit, 0); !errors.Is(err, ErrTradeNotFound) {
		t.Errorf("expected ErrTradeNotFound, got %v", err)
	}
}

func TestRemoveTradeRollsBackWithoutBalanceChange(t *testing.T) {
	m := newTestManager()
	trade, err := m.OpenPosition(bullishRequest("BTCUSDT"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.RemoveTrade(trade.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.OpenTrades()) != 0 {
		t.Error("rolled-back trade must leave the open set")
	}
	if m.Account().Balance != 10000 {
		t.Errorf("rollback must not touch the balance, got %v", m.Account().Balance)
	}
	if len(m.ClosedTrades()) != 0 {
		t.Error("rollback must not enter history")
	}
}
