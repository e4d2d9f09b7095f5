package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/market"
)

// HTTPFeed fetches candle windows from a Binance-compatible klines
// endpoint, retrying transient failures with exponential backoff.
type HTTPFeed struct {
	baseURL    string
	interval   string
	maxRetries uint64
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPFeed creates a feed for the configured endpoint.
func NewHTTPFeed(cfg config.FeedConfig, logger zerolog.Logger) *HTTPFeed {
	return &HTTPFeed{
		baseURL:    cfg.BaseURL,
		interval:   cfg.Interval,
		maxRetries: uint64(cfg.MaxRetries),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "feed").Logger(),
	}
}

// SetAPIKey attaches an exchange API key to kline requests. Klines are
// public data, but keyed requests get a higher rate-limit tier.
func (f *HTTPFeed) SetAPIKey(key string) {
	f.apiKey = key
}

// Candles fetches the trailing window for a symbol, newest last. The
// series is validated before it reaches the decision core.
func (f *HTTPFeed) Candles(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	var candles []market.Candle

	operation := func() error {
		fetched, err := f.fetch(ctx, symbol, limit)
		if err != nil {
			f.logger.Warn().Err(err).Str("symbol", symbol).Msg("kline fetch failed, retrying")
			return err
		}
		candles = fetched
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", symbol, err)
	}

	if err := market.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("invalid kline series for %s: %w", symbol, err)
	}
	return candles, nil
}

func (f *HTTPFeed) fetch(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", f.interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	// Klines arrive as positional arrays of mixed strings and numbers.
	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	candles := make([]market.Candle, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 6 {
			return nil, fmt.Errorf("malformed kline at index %d", i)
		}
		openTime, ok := raw[0].(float64)
		if !ok {
			return nil, fmt.Errorf("malformed kline open time at index %d", i)
		}
		candles[i] = market.Candle{
			OpenTime: int64(openTime),
			Open:     parseFloat(raw[1]),
			High:     parseFloat(raw[2]),
			Low:      parseFloat(raw[3]),
			Close:    parseFloat(raw[4]),
			Volume:   parseFloat(raw[5]),
		}
	}
	return candles, nil
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}
