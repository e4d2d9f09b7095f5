// Backtest replays a CSV candle file through the fusion engine and the
// position manager, then prints the aggregated results.
//
// CSV columns: open_time_ms,open,high,low,close,volume (header optional).
//
// Usage:
//
//	backtest -csv BTCUSDT-15m.csv -symbol BTCUSDT [-policy both] [-window 100]
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/feed"
	"signal-trading-bot/internal/fusion"
	"signal-trading-bot/internal/logging"
	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/outcome"
	"signal-trading-bot/internal/position"
)

func main() {
	csvPath := flag.String("csv", "", "path to the candle CSV file")
	symbol := flag.String("symbol", "BTCUSDT", "symbol label for the replay")
	policy := flag.String("policy", "both", "policy to trade: scalp, swing or both")
	window := flag.Int("window", 100, "candle window per analysis step")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	candles, err := loadCandles(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load candles: %v\n", err)
		os.Exit(1)
	}

	history, err := feed.NewHistoryFeed(candles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid candle series: %v\n", err)
		os.Exit(1)
	}

	engine := fusion.NewEngine(cfg, logger)
	manager := position.NewManager(cfg.Risk, cfg.Trailing, logger)
	analyzer := outcome.NewAnalyzer(logger)

	ctx := context.Background()
	steps := 0
	for history.Advance() {
		win, err := history.Candles(ctx, *symbol, *window)
		if err != nil {
			fmt.Fprintf(os.Stderr, "window read failed: %v\n", err)
			os.Exit(1)
		}
		if len(win) < *window {
			continue // warm-up
		}
		steps++

		last := win[len(win)-1]
		for _, sig := range manager.CheckExitSignals(last.Close, *symbol) {
			if _, err := manager.ClosePosition(sig.TradeID, sig.ExitPrice, sig.Reason, last.OpenTime); err != nil {
				fmt.Fprintf(os.Stderr, "close failed: %v\n", err)
			}
		}
		if _, open := manager.OpenTrade(*symbol); open {
			continue
		}

		var results []fusion.AnalysisResult
		if *policy == "scalp" || *policy == "both" {
			results = append(results, engine.AnalyzeScalp(*symbol, win))
		}
		if *policy == "swing" || *policy == "both" {
			results = append(results, engine.AnalyzeSwing(*symbol, win))
		}

		var best *fusion.AnalysisResult
		for i := range results {
			res := &results[i]
			if !res.MeetsThreshold || res.FinalSignal == market.Neutral {
				continue
			}
			if best == nil || res.Confidence > best.Confidence {
				best = res
			}
		}
		if best == nil {
			continue
		}

		if _, err := manager.OpenPosition(position.OpenRequest{
			Symbol:     *symbol,
			Direction:  best.FinalSignal,
			EntryPrice: best.CurrentPrice,
			Confidence: best.Confidence,
			Snapshot:   *best,
			Timestamp:  last.OpenTime,
		}); err != nil {
			// Account limits reject entries routinely during a replay.
			continue
		}
	}

	// Flatten whatever is still open at the last close.
	if len(candles) > 0 {
		last := candles[len(candles)-1]
		for _, t := range manager.OpenTrades() {
			if _, err := manager.ClosePosition(t.ID, last.Close, position.ExitManual, last.OpenTime); err != nil {
				fmt.Fprintf(os.Stderr, "final close failed: %v\n", err)
			}
		}
	}

	printSummary(*symbol, steps, manager, analyzer)
}

func loadCandles(path string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6

	var candles []market.Candle
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		// Skip a header row.
		if line == 1 && !isNumeric(record[0]) {
			continue
		}

		openTime, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad open time %q", line, record[0])
		}
		values := make([]float64, 5)
		for i := 1; i < 6; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value %q", line, record[i])
			}
			values[i-1] = v
		}

		candles = append(candles, market.Candle{
			OpenTime: openTime,
			Open:     values[0],
			High:     values[1],
			Low:      values[2],
			Close:    values[3],
			Volume:   values[4],
		})
	}
	return candles, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func printSummary(symbol string, steps int, manager *position.Manager, analyzer *outcome.Analyzer) {
	account := manager.Account()
	closed := manager.ClosedTrades()
	summary := analyzer.Aggregate(closed)

	fmt.Printf("\n===== Backtest: %s =====\n", symbol)
	fmt.Printf("Analysis steps:   %d\n", steps)
	fmt.Printf("Trades:           %d (%d wins / %d losses)\n", summary.TotalTrades, summary.Wins, summary.Losses)
	fmt.Printf("Total P&L:        %.2f\n", summary.TotalPL)
	fmt.Printf("Final balance:    %.2f (started %.2f)\n", account.Balance, account.InitialBalance)
	fmt.Printf("Max drawdown now: %.1f%%\n", account.Drawdown()*100)

	if len(summary.ConfidenceBuckets) > 0 {
		fmt.Println("\nWin rate by entry confidence:")
		for _, b := range summary.ConfidenceBuckets {
			fmt.Printf("  %-6s %3d trades  %5.1f%%\n", b.Label, b.Trades, b.WinRate)
		}
	}

	if len(summary.CauseCounts) > 0 {
		fmt.Println("\nLoss causes:")
		for cause, count := range summary.CauseCounts {
			fmt.Printf("  %-22s %d\n", cause, count)
		}
	}

	if len(summary.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range summary.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}
