package position

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/market"
)

// Manager owns the open-trade set and the account balance. Every public
// method takes the single lock: open, exit check, and close all
// read-then-write the same state, and trailing updates must see one
// consistent price per evaluation.
type Manager struct {
	mu sync.Mutex

	cfg      config.RiskConfig
	trailing config.TrailingConfig

	account AccountState
	open    map[string]*Trade // keyed by symbol, at most one per symbol
	byID    map[string]*Trade
	closed  []Trade

	logger zerolog.Logger
}

// NewManager creates a manager with the configured starting balance.
func NewManager(risk config.RiskConfig, trailing config.TrailingConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:      risk,
		trailing: trailing,
		account: AccountState{
			Balance:        risk.InitialBalance,
			InitialBalance: risk.InitialBalance,
		},
		open:   make(map[string]*Trade),
		byID:   make(map[string]*Trade),
		logger: logger.With().Str("component", "position").Logger(),
	}
}

// OpenPosition validates the request against the account limits, sizes the
// position as a fixed allocation of the current balance, places stop and
// target, and registers the trade. All-or-nothing: a rejection leaves the
// manager untouched.
//
// The allocation fraction is capital allocated, not capital at risk; sizing
// is spot-style, never leveraged.
func (m *Manager) OpenPosition(req OpenRequest) (Trade, error) {
	if err := validateOpenRequest(req); err != nil {
		return Trade{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.open) >= m.cfg.MaxOpenPositions {
		return Trade{}, ErrMaxPositionsReached
	}
	if _, exists := m.open[req.Symbol]; exists {
		return Trade{}, fmt.Errorf("%w: %s", ErrDuplicateSymbol, req.Symbol)
	}
	if m.account.Drawdown() > m.cfg.MaxDrawdown {
		return Trade{}, ErrDrawdownExceeded
	}

	invested := m.account.Balance * m.cfg.AllocationFraction
	if invested > m.availableLocked() {
		return Trade{}, ErrInsufficientBalance
	}
	size := invested / req.EntryPrice

	stop := req.StopPrice
	if stop == 0 {
		distance := req.EntryPrice * m.cfg.StopLossPct / 100
		if req.Direction == market.Bullish {
			stop = req.EntryPrice - distance
		} else {
			stop = req.EntryPrice + distance
		}
	}

	target := req.TargetPrice
	if target == 0 {
		ratio := m.takeProfitRatio(req.Confidence)
		stopDistance := math.Abs(req.EntryPrice - stop)
		if req.Direction == market.Bullish {
			target = req.EntryPrice + stopDistance*ratio
		} else {
			target = req.EntryPrice - stopDistance*ratio
		}
	}

	trade := &Trade{
		ID:            uuid.NewString(),
		Symbol:        req.Symbol,
		Direction:     req.Direction,
		EntryPrice:    req.EntryPrice,
		StopPrice:     stop,
		TargetPrice:   target,
		PositionSize:  size,
		Invested:      invested,
		Confidence:    req.Confidence,
		EntrySnapshot: req.Snapshot,
		EntryTime:     req.Timestamp,
		Status:        StatusOpen,
	}

	m.open[trade.Symbol] = trade
	m.byID[trade.ID] = trade

	m.logger.Info().
		Str("symbol", trade.Symbol).
		Str("direction", string(trade.Direction)).
		Float64("entry", trade.EntryPrice).
		Float64("stop", trade.StopPrice).
		Float64("target", trade.TargetPrice).
		Float64("size", trade.PositionSize).
		Msg("position opened")

	return *trade, nil
}

func validateOpenRequest(req OpenRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOpenRequest)
	}
	if req.Direction != market.Bullish && req.Direction != market.Bearish {
		return fmt.Errorf("%w: direction must be BULLISH or BEARISH", ErrInvalidOpenRequest)
	}
	if req.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidOpenRequest)
	}
	if req.StopPrice != 0 {
		if req.Direction == market.Bullish && req.StopPrice >= req.EntryPrice {
			return fmt.Errorf("%w: bullish stop must sit below entry", ErrInvalidOpenRequest)
		}
		if req.Direction == market.Bearish && req.StopPrice <= req.EntryPrice {
			return fmt.Errorf("%w: bearish stop must sit above entry", ErrInvalidOpenRequest)
		}
	}
	return nil
}

// takeProfitRatio interpolates the target ratio from entry confidence:
// fixed low ratio below the low threshold, fixed high ratio above the high
// threshold, linear in between.
func (m *Manager) takeProfitRatio(confidence float64) float64 {
	switch {
	case confidence <= m.cfg.ConfidenceLow:
		return m.cfg.TakeProfitRatioLow
	case confidence >= m.cfg.ConfidenceHigh:
		return m.cfg.TakeProfitRatioHigh
	default:
		span := m.cfg.ConfidenceHigh - m.cfg.ConfidenceLow
		frac := (confidence - m.cfg.ConfidenceLow) / span
		return m.cfg.TakeProfitRatioLow + frac*(m.cfg.TakeProfitRatioHigh-m.cfg.TakeProfitRatioLow)
	}
}

// CheckExitSignals evaluates every open trade (or just one symbol) against
// the current price. The trailing stop is updated first, then the stop is
// checked, then the target: when both fire on the same tick the target
// wins, a tie-break in the trader's favor.
//
// The trailing update is the only in-place mutation of an open trade.
func (m *Manager) CheckExitSignals(currentPrice float64, symbol string) []ExitSignal {
	m.mu.Lock()
	defer m.mu.Unlock()

	var signals []ExitSignal
	for _, trade := range m.open {
		if symbol != "" && trade.Symbol != symbol {
			continue
		}

		if m.trailing.Enabled {
			m.updateTrailingStop(trade, currentPrice)
		}

		var reason ExitReason
		if trade.Direction == market.Bullish {
			if currentPrice <= trade.StopPrice {
				reason = ExitStopHit
				if trade.TrailingActive {
					reason = ExitTrailingStop
				}
			}
			if currentPrice >= trade.TargetPrice {
				reason = ExitTargetHit
			}
		} else {
			if currentPrice >= trade.StopPrice {
				reason = ExitStopHit
				if trade.TrailingActive {
					reason = ExitTrailingStop
				}
			}
			if currentPrice <= trade.TargetPrice {
				reason = ExitTargetHit
			}
		}

		if reason != "" {
			signals = append(signals, ExitSignal{
				TradeID:   trade.ID,
				Symbol:    trade.Symbol,
				ExitPrice: currentPrice,
				Reason:    reason,
			})
		}
	}
	return signals
}

// updateTrailingStop moves the stop behind price once unrealized gain
// reaches the activation fraction of the target distance. The stop only
// ever moves favorably: up for bullish trades, down for bearish ones.
func (m *Manager) updateTrailingStop(trade *Trade, currentPrice float64) {
	targetDistance := math.Abs(trade.TargetPrice - trade.EntryPrice)
	if targetDistance == 0 {
		return
	}

	var gain float64
	if trade.Direction == market.Bullish {
		gain = currentPrice - trade.EntryPrice
	} else {
		gain = trade.EntryPrice - currentPrice
	}
	if gain < m.trailing.ActivationFraction*targetDistance {
		return
	}

	giveBack := gain * m.trailing.TrailFraction
	if trade.Direction == market.Bullish {
		newStop := currentPrice - giveBack
		if newStop > trade.StopPrice {
			trade.StopPrice = newStop
			trade.TrailingActive = true
		}
	} else {
		newStop := currentPrice + giveBack
		if newStop < trade.StopPrice {
			trade.StopPrice = newStop
			trade.TrailingActive = true
		}
	}
}

// ClosePosition realizes P&L at the exit price, updates the balance, and
// moves the trade to history.
func (m *Manager) ClosePosition(tradeID string, exitPrice float64, reason ExitReason, timestamp int64) (Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trade, ok := m.byID[tradeID]
	if !ok || trade.Status != StatusOpen {
		return Trade{}, fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}

	var pl float64
	if trade.Direction == market.Bullish {
		pl = trade.PositionSize * (exitPrice - trade.EntryPrice)
	} else {
		pl = trade.PositionSize * (trade.EntryPrice - exitPrice)
	}

	trade.Status = StatusClosed
	trade.ExitPrice = exitPrice
	trade.ExitReason = reason
	trade.ExitTime = timestamp
	trade.ProfitLoss = pl
	if trade.Invested > 0 {
		trade.ProfitLossPct = pl / trade.Invested * 100
	}

	m.account.Balance += pl
	delete(m.open, trade.Symbol)
	delete(m.byID, trade.ID)
	m.closed = append(m.closed, *trade)

	m.logger.Info().
		Str("symbol", trade.Symbol).
		Str("reason", string(reason)).
		Float64("exit", exitPrice).
		Float64("pl", pl).
		Float64("balance", m.account.Balance).
		Msg("position closed")

	return *trade, nil
}

// availableLocked computes balance minus entry-valued open capital. Caller
// holds the lock.
func (m *Manager) availableLocked() float64 {
	available := m.account.Balance
	for _, trade := range m.open {
		available -= trade.Invested
	}
	return available
}

// AvailableBalance is the balance not currently allocated to open trades.
func (m *Manager) AvailableBalance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availableLocked()
}

// Account returns a copy of the account state.
func (m *Manager) Account() AccountState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account
}

// OpenTrades returns copies of the open trades.
func (m *Manager) OpenTrades() []Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Trade, 0, len(m.open))
	for _, trade := range m.open {
		out = append(out, *trade)
	}
	return out
}

// OpenTrade returns the open trade for a symbol, if any.
func (m *Manager) OpenTrade(symbol string) (Trade, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trade, ok := m.open[symbol]
	if !ok {
		return Trade{}, false
	}
	return *trade, true
}

// ClosedTrades returns copies of the closed-trade history, oldest first.
func (m *Manager) ClosedTrades() []Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Trade, len(m.closed))
	copy(out, m.closed)
	return out
}

// RestoreTrade re-registers an open trade from a persisted snapshot after
// a restart. Restored trades keep their original ID, stop and trailing
// state. Symbols that already have an open trade are skipped.
func (m *Manager) RestoreTrade(trade Trade) error {
	if trade.Status != StatusOpen {
		return fmt.Errorf("%w: cannot restore closed trade %s", ErrInvalidOpenRequest, trade.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.open[trade.Symbol]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSymbol, trade.Symbol)
	}

	t := trade
	m.open[t.Symbol] = &t
	m.byID[t.ID] = &t

	m.logger.Info().
		Str("symbol", t.Symbol).
		Str("id", t.ID).
		Float64("entry", t.EntryPrice).
		Msg("position restored from snapshot")
	return nil
}

// RemoveTrade drops an open trade without touching the balance. Used to
// roll back a position whose execution call failed, so state never shows
// OPEN for a trade that is not actually live.
func (m *Manager) RemoveTrade(tradeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	trade, ok := m.byID[tradeID]
	if !ok || trade.Status != StatusOpen {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}
	delete(m.open, trade.Symbol)
	delete(m.byID, trade.ID)

	m.logger.Warn().Str("symbol", trade.Symbol).Msg("position rolled back")
	return nil
}
