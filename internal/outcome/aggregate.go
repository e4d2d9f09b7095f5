package outcome

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"signal-trading-bot/internal/market"
	"signal-trading-bot/internal/position"
)

// DirectionStats is the win/loss tally for one trade direction.
type DirectionStats struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	PL     float64 `json:"pl"`
}

// BucketStats is the win rate within one entry-confidence bucket.
type BucketStats struct {
	Label   string  `json:"label"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winRate"` // percent
}

// Summary aggregates the closed-trade history.
type Summary struct {
	TotalTrades int     `json:"totalTrades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalPL     float64 `json:"totalPl"`

	CauseCounts       map[Cause]int                       `json:"causeCounts"`
	ByDirection       map[market.Direction]DirectionStats `json:"byDirection"`
	ConfidenceBuckets []BucketStats                       `json:"confidenceBuckets"`
	SymbolPL          map[string]float64                  `json:"symbolPl"`

	Recommendations []string `json:"recommendations"`
}

var confidenceBucketLabels = []string{"40-50", "50-60", "60-70", "70-80", "80+"}

func bucketLabel(confidence float64) string {
	switch {
	case confidence < 50:
		return confidenceBucketLabels[0]
	case confidence < 60:
		return confidenceBucketLabels[1]
	case confidence < 70:
		return confidenceBucketLabels[2]
	case confidence < 80:
		return confidenceBucketLabels[3]
	default:
		return confidenceBucketLabels[4]
	}
}

// recommendationByCause maps frequent causes onto actionable advice.
var recommendationByCause = map[Cause]string{
	CauseCounterTrend:       "only enter in the direction of the prevailing trend",
	CauseWeakTrend:          "raise the minimum trend strength to 60%+",
	CauseMomentumMisaligned: "require momentum to agree with the entry direction",
	CauseLowMomentum:        "skip entries with a momentum score under 40",
	CauseLowVolume:          "require above-average volume at entry",
	CauseRangingMarket:      "skip entries while the regime reads ranging",
	CauseStopTooTight:       "widen stops to at least 1.5% of entry",
	CauseLowConfidence:      "raise the minimum entry confidence to 55+",
	CauseWeakQuality:        "skip WEAK-quality signals",
	CauseNoCandlestick:      "wait for a candlestick confirmation",
}

// Aggregate summarizes closed trades: totals, per-direction and per-symbol
// results, win rate by confidence bucket, loss-cause counts, and the
// recommendations derived from the most frequent causes.
func (a *Analyzer) Aggregate(trades []position.Trade) Summary {
	closed := lo.Filter(trades, func(t position.Trade, _ int) bool {
		return t.Status == position.StatusClosed
	})

	summary := Summary{
		TotalTrades: len(closed),
		CauseCounts: make(map[Cause]int),
		ByDirection: make(map[market.Direction]DirectionStats),
		SymbolPL:    make(map[string]float64),
	}

	for _, t := range closed {
		summary.TotalPL += t.ProfitLoss
		if t.ProfitLoss >= 0 {
			summary.Wins++
		} else {
			summary.Losses++
		}

		stats := summary.ByDirection[t.Direction]
		stats.Trades++
		stats.PL += t.ProfitLoss
		if t.ProfitLoss >= 0 {
			stats.Wins++
		}
		summary.ByDirection[t.Direction] = stats

		summary.SymbolPL[t.Symbol] += t.ProfitLoss

		if report, ok := a.Analyze(t); ok {
			for _, cause := range report.Causes {
				summary.CauseCounts[cause]++
			}
		}
	}

	byBucket := lo.GroupBy(closed, func(t position.Trade) string {
		return bucketLabel(t.Confidence)
	})
	for _, label := range confidenceBucketLabels {
		group := byBucket[label]
		if len(group) == 0 {
			continue
		}
		wins := lo.CountBy(group, func(t position.Trade) bool {
			return t.ProfitLoss >= 0
		})
		summary.ConfidenceBuckets = append(summary.ConfidenceBuckets, BucketStats{
			Label:   label,
			Trades:  len(group),
			Wins:    wins,
			WinRate: float64(wins) / float64(len(group)) * 100,
		})
	}

	summary.Recommendations = recommendations(summary.CauseCounts, summary.Losses)
	return summary
}

// recommendations derives advice from causes hitting at least a quarter of
// the losses, most frequent first, at most three.
func recommendations(counts map[Cause]int, losses int) []string {
	if losses == 0 {
		return nil
	}

	type causeCount struct {
		cause Cause
		count int
	}
	frequent := make([]causeCount, 0, len(counts))
	for cause, count := range counts {
		if float64(count) >= float64(losses)*0.25 {
			frequent = append(frequent, causeCount{cause, count})
		}
	}
	sort.Slice(frequent, func(i, j int) bool {
		if frequent[i].count != frequent[j].count {
			return frequent[i].count > frequent[j].count
		}
		return frequent[i].cause < frequent[j].cause
	})

	var out []string
	for _, fc := range frequent {
		if len(out) == 3 {
			break
		}
		if advice, ok := recommendationByCause[fc.cause]; ok {
			out = append(out, fmt.Sprintf("%s (%d losses)", advice, fc.count))
		}
	}
	return out
}
