// Package bot is the orchestrator: a cron-driven scan loop that pulls
// candle windows, runs both fusion policies, opens and closes paper
// positions, and persists what happened. All trading decisions live in
// the fusion and position packages; the bot only wires them together.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/events"
	"signal-trading-bot/internal/execution"
	"signal-trading-bot/internal/feed"
	"signal-trading-bot/internal/fusion"
	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/outcome"
	"signal-trading-bot/internal/position"
	"signal-trading-bot/internal/store"
)

// PolicyMode selects which fusion policies the scan loop trades on.
type PolicyMode string

const (
	ModeScalp PolicyMode = "scalp"
	ModeSwing PolicyMode = "swing"
	ModeBoth  PolicyMode = "both"
)

// Bot runs the scan loop and exposes state to the dashboard.
type Bot struct {
	cfg      *config.Config
	feed     feed.Feed
	engine   *fusion.Engine
	manager  *position.Manager
	analyzer *outcome.Analyzer
	executor execution.Executor
	repo     *store.Repository    // nil when persistence is disabled
	snaps    *store.SnapshotStore // nil when snapshots are disabled
	bus      *events.Bus

	mu        sync.RWMutex
	running   bool
	mode      PolicyMode
	lastPrice map[string]float64

	cron     *cron.Cron
	stopChan chan struct{}
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// New wires the bot together. repo and snaps may be nil.
func New(
	cfg *config.Config,
	f feed.Feed,
	engine *fusion.Engine,
	manager *position.Manager,
	analyzer *outcome.Analyzer,
	executor execution.Executor,
	repo *store.Repository,
	snaps *store.SnapshotStore,
	bus *events.Bus,
	logger zerolog.Logger,
) *Bot {
	return &Bot{
		cfg:       cfg,
		feed:      f,
		engine:    engine,
		manager:   manager,
		analyzer:  analyzer,
		executor:  executor,
		repo:      repo,
		snaps:     snaps,
		bus:       bus,
		running:   true,
		mode:      ModeBoth,
		lastPrice: make(map[string]float64),
		stopChan:  make(chan struct{}),
		logger:    logger.With().Str("component", "bot").Logger(),
	}
}

// Start restores persisted positions, schedules the scan loop, and begins
// polling the command queue. It does not block.
func (b *Bot) Start(ctx context.Context) error {
	b.restorePositions(ctx)

	b.cron = cron.New(cron.WithSeconds())
	if _, err := b.cron.AddFunc(b.cfg.Scheduler.ScanSpec, func() {
		b.scanAll(ctx)
	}); err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", b.cfg.Scheduler.ScanSpec, err)
	}
	b.cron.Start()

	b.wg.Add(1)
	go b.pollCommands(ctx)

	b.bus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{
		"symbols": b.cfg.Feed.Symbols,
		"mode":    string(b.mode),
	}})
	b.logger.Info().
		Strs("symbols", b.cfg.Feed.Symbols).
		Str("schedule", b.cfg.Scheduler.ScanSpec).
		Msg("bot started")
	return nil
}

// Stop halts the scheduler and the command poller.
func (b *Bot) Stop() {
	if b.cron != nil {
		b.cron.Stop()
	}
	close(b.stopChan)
	b.wg.Wait()

	b.bus.Publish(events.Event{Type: events.EventBotStopped, Data: map[string]interface{}{}})
	b.logger.Info().Msg("bot stopped")
}

func (b *Bot) restorePositions(ctx context.Context) {
	if b.snaps == nil {
		return
	}

	trades, err := b.snaps.LoadTrades(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("loading position snapshots failed")
		return
	}
	for _, t := range trades {
		if err := b.manager.RestoreTrade(t); err != nil {
			b.logger.Warn().Err(err).Str("symbol", t.Symbol).Msg("snapshot restore skipped")
		}
	}
}

// scanAll runs one scan pass across the configured symbols.
func (b *Bot) scanAll(ctx context.Context) {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()
	if !running {
		return
	}

	for _, symbol := range b.cfg.Feed.Symbols {
		if err := b.scanSymbol(ctx, symbol); err != nil {
			b.logger.Error().Err(err).Str("symbol", symbol).Msg("scan failed")
			b.bus.PublishError("scan", "symbol scan failed: "+symbol, err)
		}
	}
}

func (b *Bot) scanSymbol(ctx context.Context, symbol string) error {
	candles, err := b.feed.Candles(ctx, symbol, b.cfg.Feed.WindowSize)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return fmt.Errorf("empty candle window for %s", symbol)
	}

	last := candles[len(candles)-1]
	b.mu.Lock()
	b.lastPrice[symbol] = last.Close
	b.mu.Unlock()

	// Exits before entries: a symbol whose position closes this tick is
	// still skipped for re-entry until the next pass.
	b.checkExits(ctx, symbol, last.Close, last.OpenTime)

	if _, open := b.manager.OpenTrade(symbol); open {
		return nil
	}

	results := b.analyzePolicies(symbol, candles)
	var best *fusion.AnalysisResult
	for i := range results {
		res := &results[i]
		if err := b.repo.SaveSignal(ctx, *res); err != nil {
			b.logger.Warn().Err(err).Msg("persisting signal failed")
		}
		b.bus.PublishSignal(symbol, string(res.Policy), string(res.FinalSignal), res.Confidence, res.CurrentPrice)

		if !res.MeetsThreshold || res.FinalSignal == market.Neutral {
			continue
		}
		if best == nil || res.Confidence > best.Confidence {
			best = res
		}
	}
	if best == nil {
		return nil
	}
	return b.openFromSignal(ctx, *best, last.OpenTime)
}

func (b *Bot) analyzePolicies(symbol string, candles []market.Candle) []fusion.AnalysisResult {
	b.mu.RLock()
	mode := b.mode
	b.mu.RUnlock()

	var results []fusion.AnalysisResult
	if mode == ModeScalp || mode == ModeBoth {
		results = append(results, b.engine.AnalyzeScalp(symbol, candles))
	}
	if mode == ModeSwing || mode == ModeBoth {
		results = append(results, b.engine.AnalyzeSwing(symbol, candles))
	}
	return results
}

func (b *Bot) openFromSignal(ctx context.Context, res fusion.AnalysisResult, timestamp int64) error {
	trade, err := b.manager.OpenPosition(position.OpenRequest{
		Symbol:     res.Symbol,
		Direction:  res.FinalSignal,
		EntryPrice: res.CurrentPrice,
		Confidence: res.Confidence,
		Snapshot:   res,
		Timestamp:  timestamp,
	})
	if err != nil {
		// Account limits are expected outcomes at this level, not errors.
		b.logger.Debug().Err(err).Str("symbol", res.Symbol).Msg("entry rejected")
		return nil
	}

	side := execution.SideBuy
	if trade.Direction == market.Bearish {
		side = execution.SideSell
	}
	result, err := b.executor.PlaceOrder(ctx, execution.OrderRequest{
		Symbol:      trade.Symbol,
		Side:        side,
		Quantity:    trade.PositionSize,
		Price:       trade.EntryPrice,
		StopPrice:   trade.StopPrice,
		TargetPrice: trade.TargetPrice,
	})
	if err != nil || !result.Success {
		// Roll back so state never shows a position that is not live.
		if rbErr := b.manager.RemoveTrade(trade.ID); rbErr != nil {
			b.logger.Error().Err(rbErr).Str("id", trade.ID).Msg("rollback failed")
		}
		if err != nil {
			return fmt.Errorf("placing entry order: %w", err)
		}
		return fmt.Errorf("entry order rejected: %s", result.Error)
	}

	if err := b.repo.SaveTradeEvent(ctx, store.TradeEventOpen, trade); err != nil {
		b.logger.Warn().Err(err).Msg("persisting trade open failed")
	}
	if b.snaps != nil {
		if err := b.snaps.SaveTrade(ctx, trade); err != nil {
			b.logger.Warn().Err(err).Msg("saving position snapshot failed")
		}
	}
	b.bus.PublishTradeOpened(trade.ID, trade.Symbol, string(trade.Direction), trade.EntryPrice, trade.PositionSize)
	return nil
}

func (b *Bot) checkExits(ctx context.Context, symbol string, price float64, timestamp int64) {
	for _, sig := range b.manager.CheckExitSignals(price, symbol) {
		b.closeTrade(ctx, sig.TradeID, sig.ExitPrice, sig.Reason, timestamp)
	}
}

func (b *Bot) closeTrade(ctx context.Context, tradeID string, exitPrice float64, reason position.ExitReason, timestamp int64) {
	trade, err := b.manager.ClosePosition(tradeID, exitPrice, reason, timestamp)
	if err != nil {
		b.logger.Error().Err(err).Str("id", tradeID).Msg("close failed")
		return
	}

	side := execution.SideSell
	if trade.Direction == market.Bearish {
		side = execution.SideBuy
	}
	if _, err := b.executor.PlaceOrder(ctx, execution.OrderRequest{
		Symbol:   trade.Symbol,
		Side:     side,
		Quantity: trade.PositionSize,
		Price:    exitPrice,
	}); err != nil {
		b.logger.Error().Err(err).Str("symbol", trade.Symbol).Msg("exit order failed")
	}

	if err := b.repo.SaveTradeEvent(ctx, store.TradeEventClose, trade); err != nil {
		b.logger.Warn().Err(err).Msg("persisting trade close failed")
	}
	if b.snaps != nil {
		if err := b.snaps.DeleteTrade(ctx, trade.Symbol); err != nil {
			b.logger.Warn().Err(err).Msg("deleting position snapshot failed")
		}
	}
	b.bus.PublishTradeClosed(trade.ID, trade.Symbol, string(reason), exitPrice, trade.ProfitLoss, trade.ProfitLossPct)

	if report, ok := b.analyzer.Analyze(trade); ok {
		causes := make([]string, len(report.Causes))
		for i, c := range report.Causes {
			causes[i] = string(c)
		}
		b.logger.Info().
			Str("symbol", trade.Symbol).
			Strs("causes", causes).
			Msg("losing trade analyzed")
	}
}

// pollCommands applies queued dashboard commands until the bot stops.
func (b *Bot) pollCommands(ctx context.Context) {
	defer b.wg.Done()

	if b.repo == nil {
		return
	}

	interval := time.Duration(b.cfg.Scheduler.CommandPollSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			commands, err := b.repo.PendingCommands(ctx)
			if err != nil {
				b.logger.Warn().Err(err).Msg("fetching commands failed")
				continue
			}
			for _, cmd := range commands {
				b.applyCommand(ctx, cmd)
				if err := b.repo.MarkCommandApplied(ctx, cmd.ID); err != nil {
					b.logger.Warn().Err(err).Int64("id", cmd.ID).Msg("marking command failed")
				}
			}
		case <-b.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) applyCommand(ctx context.Context, cmd store.Command) {
	b.logger.Info().Str("command", cmd.Command).Str("argument", cmd.Argument).Msg("applying command")

	switch cmd.Command {
	case "start":
		b.setRunning(true)
	case "stop":
		b.setRunning(false)
	case "close":
		b.manualClose(ctx, cmd.Argument, "")
	case "close-symbol":
		b.manualClose(ctx, "", strings.ToUpper(cmd.Argument))
	case "set-policy":
		switch PolicyMode(cmd.Argument) {
		case ModeScalp, ModeSwing, ModeBoth:
			b.mu.Lock()
			b.mode = PolicyMode(cmd.Argument)
			b.mu.Unlock()
		default:
			b.logger.Warn().Str("argument", cmd.Argument).Msg("unknown policy mode")
		}
	default:
		b.logger.Warn().Str("command", cmd.Command).Msg("unknown command")
	}
}

func (b *Bot) manualClose(ctx context.Context, tradeID, symbol string) {
	for _, trade := range b.manager.OpenTrades() {
		if tradeID != "" && trade.ID != tradeID {
			continue
		}
		if symbol != "" && trade.Symbol != symbol {
			continue
		}

		b.mu.RLock()
		price, ok := b.lastPrice[trade.Symbol]
		b.mu.RUnlock()
		if !ok {
			// No price seen yet this run; exit at entry, flat.
			price = trade.EntryPrice
		}
		b.closeTrade(ctx, trade.ID, price, position.ExitManual, time.Now().UnixMilli())
	}
}

func (b *Bot) setRunning(running bool) {
	b.mu.Lock()
	b.running = running
	b.mu.Unlock()
}

// ===== Dashboard API =====

// Status summarizes the bot state for the dashboard.
func (b *Bot) Status() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	account := b.manager.Account()
	return map[string]interface{}{
		"running":         b.running,
		"mode":            string(b.mode),
		"symbols":         b.cfg.Feed.Symbols,
		"open_positions":  len(b.manager.OpenTrades()),
		"balance":         account.Balance,
		"initial_balance": account.InitialBalance,
		"drawdown":        account.Drawdown(),
	}
}

// Account returns the paper account state.
func (b *Bot) Account() position.AccountState {
	return b.manager.Account()
}

// OpenTrades returns the open positions.
func (b *Bot) OpenTrades() []position.Trade {
	return b.manager.OpenTrades()
}

// ClosedTrades returns the closed-trade history.
func (b *Bot) ClosedTrades() []position.Trade {
	return b.manager.ClosedTrades()
}

// Analyze runs both fusion policies on demand for the dashboard.
func (b *Bot) Analyze(ctx context.Context, symbol string) (fusion.AnalysisResult, fusion.AnalysisResult, error) {
	candles, err := b.feed.Candles(ctx, symbol, b.cfg.Feed.WindowSize)
	if err != nil {
		return fusion.AnalysisResult{}, fusion.AnalysisResult{}, err
	}
	return b.engine.AnalyzeScalp(symbol, candles), b.engine.AnalyzeSwing(symbol, candles), nil
}

// LossSummary aggregates the failure analysis over closed trades.
func (b *Bot) LossSummary() outcome.Summary {
	return b.analyzer.Aggregate(b.manager.ClosedTrades())
}
