// Package position owns the trade lifecycle: sizing, stop/target
// placement, trailing stops, exit detection, and realized P&L. All state is
// in memory behind a single lock; persistence belongs to callers.
package position

import (
	"errors"

	"signal-trading-bot/internal/fusion"
	"signal-trading-bot/internal/market"
)

// Business-rule rejections. These are expected outcomes, returned and
// checked, never treated as exceptional.
var (
	ErrMaxPositionsReached = errors.New("maximum open positions reached")
	ErrDuplicateSymbol     = errors.New("symbol already has an open position")
	ErrDrawdownExceeded    = errors.New("maximum drawdown exceeded")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrTradeNotFound       = errors.New("trade not found")
	ErrInvalidOpenRequest  = errors.New("invalid open request")
)

// Status is the trade lifecycle state. CLOSED is terminal.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// ExitReason labels why an exit signal fired.
type ExitReason string

const (
	ExitStopHit      ExitReason = "STOP_HIT"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitTargetHit    ExitReason = "TARGET_HIT"
	ExitManual       ExitReason = "MANUAL"
)

// Trade is one position. While OPEN, the only in-place mutation is the
// trailing stop moving StopPrice favorably. Closing attaches the exit
// fields and moves the trade to history.
type Trade struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Direction market.Direction `json:"direction"`

	EntryPrice   float64 `json:"entryPrice"`
	StopPrice    float64 `json:"stopPrice"`
	TargetPrice  float64 `json:"targetPrice"`
	PositionSize float64 `json:"positionSize"` // units, always positive
	Invested     float64 `json:"invested"`     // entry-valued capital

	Confidence    float64               `json:"confidence"`
	EntrySnapshot fusion.AnalysisResult `json:"entrySnapshot"`
	EntryTime     int64                 `json:"entryTime"`

	Status         Status `json:"status"`
	TrailingActive bool   `json:"trailingActive"`

	ExitPrice     float64    `json:"exitPrice,omitempty"`
	ExitReason    ExitReason `json:"exitReason,omitempty"`
	ExitTime      int64      `json:"exitTime,omitempty"`
	ProfitLoss    float64    `json:"profitLoss,omitempty"`
	ProfitLossPct float64    `json:"profitLossPct,omitempty"`
}

// AccountState is the paper account. Balance moves only on close.
type AccountState struct {
	Balance        float64 `json:"balance"`
	InitialBalance float64 `json:"initialBalance"`
}

// Drawdown is the fractional decline from the initial balance; zero when
// the account is flat or ahead.
func (a AccountState) Drawdown() float64 {
	if a.InitialBalance <= 0 || a.Balance >= a.InitialBalance {
		return 0
	}
	return (a.InitialBalance - a.Balance) / a.InitialBalance
}

// OpenRequest asks the manager to open a position from a fusion signal.
type OpenRequest struct {
	Symbol     string
	Direction  market.Direction
	EntryPrice float64
	// StopPrice zero means: place the default stop at the configured
	// percentage distance from entry.
	StopPrice float64
	// TargetPrice zero means: compute the target from the
	// confidence-interpolated take-profit ratio. A nonzero value overrides
	// it (Fibonacci-target entries use this).
	TargetPrice float64
	Confidence  float64
	Snapshot    fusion.AnalysisResult
	Timestamp   int64
}

// ExitSignal reports that an open trade crossed its stop or target.
type ExitSignal struct {
	TradeID   string     `json:"tradeId"`
	Symbol    string     `json:"symbol"`
	ExitPrice float64    `json:"exitPrice"`
	Reason    ExitReason `json:"reason"`
}
