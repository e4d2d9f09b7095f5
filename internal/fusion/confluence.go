package fusion

import (
	"strings"

	"signal-trading-bot/internal/indicator"
	"signal-trading-bot/internal/market"
)

// confluenceRead is the weighted-vote aggregation of the indicator
// snapshot: each flag votes for a side, and strength scales with the margin
// between the sides.
type confluenceRead struct {
	Direction market.Direction
	Strength  float64 // 0-100
	Detail    string
}

// confluenceMaxVotes is the largest one-sided vote total: RSI 2 + MACD 2 +
// Bollinger 1.5 + both divergences 1.5 each.
const confluenceMaxVotes = 8.5

// scoreConfluence tallies the directional votes of one snapshot. Mean
// reversion flags (RSI extremes, band proximity) vote against the extreme;
// MACD votes with its histogram; hidden bullish divergence votes long.
func scoreConfluence(snap *indicator.Snapshot) confluenceRead {
	var bull, bear float64
	var fired []string

	if snap.RSI.Oversold {
		bull += 2
		fired = append(fired, "rsi-oversold")
	}
	if snap.RSI.Overbought {
		bear += 2
		fired = append(fired, "rsi-overbought")
	}

	if snap.MACD.Bullish {
		bull += 2
		fired = append(fired, "macd-bullish")
	}
	if snap.MACD.Bearish {
		bear += 2
		fired = append(fired, "macd-bearish")
	}

	if snap.Bollinger.NearLower {
		bull += 1.5
		fired = append(fired, "bb-lower")
	}
	if snap.Bollinger.NearUpper {
		bear += 1.5
		fired = append(fired, "bb-upper")
	}

	if snap.RSIDivergence.Detected {
		bull += 1.5
		fired = append(fired, "rsi-divergence")
	}
	if snap.MACDDivergence.Detected {
		bull += 1.5
		fired = append(fired, "macd-divergence")
	}

	direction := market.Neutral
	switch {
	case bull > bear:
		direction = market.Bullish
	case bear > bull:
		direction = market.Bearish
	}

	margin := bull - bear
	if margin < 0 {
		margin = -margin
	}

	return confluenceRead{
		Direction: direction,
		Strength:  clampScore(margin / confluenceMaxVotes * 100),
		Detail:    strings.Join(fired, ","),
	}
}
