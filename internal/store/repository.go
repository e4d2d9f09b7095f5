package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-trading-bot/internal/fusion"
	"signal-trading-bot/internal/position"
)

// Trade event types recorded in the event log.
const (
	TradeEventOpen  = "OPEN"
	TradeEventClose = "CLOSE"
)

// Command is one dashboard command waiting to be applied by the bot loop.
type Command struct {
	ID       int64  `json:"id"`
	Command  string `json:"command"`
	Argument string `json:"argument,omitempty"`
}

// Repository persists signals, trade events and dashboard commands. A nil
// repository is valid and drops every write, so the bot runs unchanged
// with persistence disabled.
type Repository struct {
	db *DB
}

// NewRepository wraps a database handle. Pass nil to disable persistence.
func NewRepository(db *DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// SaveSignal appends one fusion result to the signal event log.
func (r *Repository) SaveSignal(ctx context.Context, res fusion.AnalysisResult) error {
	if r == nil {
		return nil
	}

	components, err := json.Marshal(res.Components)
	if err != nil {
		return fmt.Errorf("marshaling signal components: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO signal_events
			(symbol, policy, direction, confidence, quality, meets_threshold, components, price, signal_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.Symbol, string(res.Policy), string(res.FinalSignal), res.Confidence,
		string(res.Quality), res.MeetsThreshold, components, res.CurrentPrice,
		time.UnixMilli(res.Timestamp).UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting signal event: %w", err)
	}
	return nil
}

// SaveTradeEvent appends an OPEN or CLOSE event for a trade.
func (r *Repository) SaveTradeEvent(ctx context.Context, eventType string, t position.Trade) error {
	if r == nil {
		return nil
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling trade: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO trade_events
			(trade_id, event_type, symbol, direction, entry_price, exit_price,
			 stop_price, target_price, quantity, confidence, exit_reason, pnl, pnl_percent, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, eventType, t.Symbol, string(t.Direction), t.EntryPrice, t.ExitPrice,
		t.StopPrice, t.TargetPrice, t.PositionSize, t.Confidence,
		string(t.ExitReason), t.ProfitLoss, t.ProfitLossPct, payload,
	)
	if err != nil {
		return fmt.Errorf("inserting trade event: %w", err)
	}
	return nil
}

// EnqueueCommand stores a dashboard command for the bot loop to pick up.
func (r *Repository) EnqueueCommand(ctx context.Context, command, argument string) error {
	if r == nil {
		return fmt.Errorf("persistence disabled: commands unavailable")
	}

	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO pending_commands (command, argument) VALUES ($1, $2)`,
		command, argument,
	)
	if err != nil {
		return fmt.Errorf("enqueuing command: %w", err)
	}
	return nil
}

// PendingCommands returns unapplied commands, oldest first.
func (r *Repository) PendingCommands(ctx context.Context) ([]Command, error) {
	if r == nil {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, command, COALESCE(argument, '')
		FROM pending_commands
		WHERE status = 'PENDING'
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying pending commands: %w", err)
	}
	defer rows.Close()

	var commands []Command
	for rows.Next() {
		var c Command
		if err := rows.Scan(&c.ID, &c.Command, &c.Argument); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}

// MarkCommandApplied records that the bot loop has executed a command.
func (r *Repository) MarkCommandApplied(ctx context.Context, id int64) error {
	if r == nil {
		return nil
	}

	_, err := r.db.Pool.Exec(ctx, `
		UPDATE pending_commands
		SET status = 'APPLIED', applied_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking command applied: %w", err)
	}
	return nil
}
