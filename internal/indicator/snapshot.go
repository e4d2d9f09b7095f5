// Package indicator computes technical indicators from a trailing candle
// window. Every computation is a pure function of the window; nothing is
// cached or persisted between calls.
package indicator

import (
	"signal-trading-bot/config"
	"signal-trading-bot/internal/market"
)

// MinWindow is the smallest candle window a full snapshot can be computed
// from: the MACD slow EMA dominates every other lookback.
const MinWindow = 26

// Regime classifies the market state from trend strength.
type Regime string

const (
	RegimeTrending Regime = "trending"
	RegimeRanging  Regime = "ranging"
)

// RSIReading is the RSI value with its threshold flags.
type RSIReading struct {
	Value      float64 `json:"value"`
	Oversold   bool    `json:"oversold"`
	Overbought bool    `json:"overbought"`
}

// MACDReading is the MACD triple with directional flags.
type MACDReading struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Bullish   bool    `json:"bullish"`
	Bearish   bool    `json:"bearish"`
}

// BollingerReading is the band triple with proximity flags for the current
// close.
type BollingerReading struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	NearUpper bool    `json:"nearUpper"`
	NearLower bool    `json:"nearLower"`
}

// ATRReading is the ATR value with the high-volatility flag.
type ATRReading struct {
	Value          float64 `json:"value"`
	HighVolatility bool    `json:"highVolatility"`
}

// ADXReading is the ADX value with its regime classification. Strength is
// 0-100: in a trending regime it scales with how far ADX sits above the
// trending level; in a ranging regime it scales inversely, reading higher
// the flatter the tape.
type ADXReading struct {
	Value    float64 `json:"value"`
	Regime   Regime  `json:"regime"`
	Strength float64 `json:"strength"`
}

// VolumeReading is the volume ratio with the above-average flag.
type VolumeReading struct {
	Ratio        float64 `json:"ratio"`
	AboveAverage bool    `json:"aboveAverage"`
}

// Snapshot is the full indicator read of one candle window. It is built
// fresh on every call and never partially populated: a window too short for
// any constituent indicator fails the whole snapshot.
type Snapshot struct {
	RSI            RSIReading       `json:"rsi"`
	MACD           MACDReading      `json:"macd"`
	Bollinger      BollingerReading `json:"bollinger"`
	ATR            ATRReading       `json:"atr"`
	ADX            ADXReading       `json:"adx"`
	Volume         VolumeReading    `json:"volume"`
	RSIDivergence  Divergence       `json:"rsiDivergence"`
	MACDDivergence Divergence       `json:"macdDivergence"`
}

// Compute builds an indicator snapshot from the candle window. Fails with
// ErrInsufficientData when the window is shorter than MinWindow.
func Compute(candles []market.Candle, cfg config.IndicatorConfig) (*Snapshot, error) {
	if len(candles) < MinWindow {
		return nil, insufficient("snapshot", MinWindow, len(candles))
	}

	currentPrice := candles[len(candles)-1].Close

	rsi, err := RSI(candles, cfg.RSIPeriod)
	if err != nil {
		return nil, err
	}

	macd, err := MACD(candles, cfg.MACDFastPeriod, cfg.MACDSlowPeriod, cfg.MACDSignalPeriod)
	if err != nil {
		return nil, err
	}

	bb, err := Bollinger(candles, cfg.BollingerPeriod, cfg.BollingerStdDev)
	if err != nil {
		return nil, err
	}

	atr, err := ATR(candles, cfg.ATRPeriod)
	if err != nil {
		return nil, err
	}

	adx, err := ADX(candles, cfg.ADXPeriod)
	if err != nil {
		return nil, err
	}

	volRatio, err := VolumeRatio(candles, cfg.VolumePeriod)
	if err != nil {
		return nil, err
	}

	rsiDiv, err := HiddenBullishRSI(candles, cfg.RSIPeriod, cfg.DivergenceLookback)
	if err != nil {
		return nil, err
	}

	macdDiv, err := HiddenBullishMACD(candles, cfg.MACDFastPeriod, cfg.MACDSlowPeriod, cfg.DivergenceLookback)
	if err != nil {
		return nil, err
	}

	proximity := currentPrice * cfg.BollingerProximityPct / 100

	return &Snapshot{
		RSI: RSIReading{
			Value:      rsi,
			Oversold:   rsi < cfg.RSIOversold,
			Overbought: rsi > cfg.RSIOverbought,
		},
		MACD: MACDReading{
			Value:     macd.Value,
			Signal:    macd.Signal,
			Histogram: macd.Histogram,
			Bullish:   macd.Histogram > 0,
			Bearish:   macd.Histogram < 0,
		},
		Bollinger: BollingerReading{
			Upper:     bb.Upper,
			Middle:    bb.Middle,
			Lower:     bb.Lower,
			NearUpper: currentPrice >= bb.Upper-proximity,
			NearLower: currentPrice <= bb.Lower+proximity,
		},
		ATR: ATRReading{
			Value:          atr,
			HighVolatility: currentPrice > 0 && atr/currentPrice*100 >= cfg.HighVolatilityPct,
		},
		ADX:    classifyRegime(adx, cfg.ADXTrendingLevel),
		Volume: VolumeReading{Ratio: volRatio, AboveAverage: volRatio >= cfg.VolumeAboveAverage},

		RSIDivergence:  rsiDiv,
		MACDDivergence: macdDiv,
	}, nil
}

// classifyRegime maps ADX onto a trending/ranging read. Above the trending
// level, strength scales linearly from the level to 75 ADX; below it,
// strength scales inversely so a dead-flat tape reads as strongly ranging.
func classifyRegime(adx, trendingLevel float64) ADXReading {
	if adx > trendingLevel {
		strength := (adx - trendingLevel) / (75 - trendingLevel) * 100
		if strength > 100 {
			strength = 100
		}
		return ADXReading{Value: adx, Regime: RegimeTrending, Strength: strength}
	}

	strength := (trendingLevel - adx) / trendingLevel * 100
	if strength > 100 {
		strength = 100
	}
	if strength < 0 {
		strength = 0
	}
	return ADXReading{Value: adx, Regime: RegimeRanging, Strength: strength}
}
