// Package execution is the order-placement boundary. The decision core is
// agnostic to whether orders are simulated or real; callers must roll back
// in-memory positions when an execution call fails, so state never shows an
// open trade that is not actually live.
package execution

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Side is the order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderRequest is one order to place.
type OrderRequest struct {
	Symbol      string  `json:"symbol"`
	Side        Side    `json:"side"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	StopPrice   float64 `json:"stopPrice,omitempty"`
	TargetPrice float64 `json:"targetPrice,omitempty"`
}

// OrderResult reports the outcome of an order placement.
type OrderResult struct {
	Success       bool   `json:"success"`
	BrokerOrderID string `json:"brokerOrderId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Executor places orders against an exchange, real or simulated.
type Executor interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// PaperExecutor simulates fills instantly and keeps the order log in
// memory.
type PaperExecutor struct {
	mu     sync.Mutex
	orders []OrderRequest

	// failNext forces the next placement to fail; used to exercise the
	// caller's rollback path.
	failNext bool

	logger zerolog.Logger
}

// NewPaperExecutor creates a paper executor.
func NewPaperExecutor(logger zerolog.Logger) *PaperExecutor {
	return &PaperExecutor{
		logger: logger.With().Str("component", "execution").Logger(),
	}
}

// PlaceOrder records the order and reports an instant fill.
func (e *PaperExecutor) PlaceOrder(_ context.Context, req OrderRequest) (OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failNext {
		e.failNext = false
		return OrderResult{Success: false, Error: "simulated execution failure"}, nil
	}

	e.orders = append(e.orders, req)
	id := uuid.NewString()

	e.logger.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("quantity", req.Quantity).
		Float64("price", req.Price).
		Str("orderId", id).
		Msg("paper order filled")

	return OrderResult{Success: true, BrokerOrderID: id}, nil
}

// FailNext makes the next placement fail.
func (e *PaperExecutor) FailNext() {
	e.mu.Lock()
	e.failNext = true
	e.mu.Unlock()
}

// Orders returns a copy of the recorded order log.
func (e *PaperExecutor) Orders() []OrderRequest {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]OrderRequest, len(e.orders))
	copy(out, e.orders)
	return out
}
