package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/position"
)

const (
	snapshotKeyPrefix = "positions:open:"
	snapshotTTL       = 7 * 24 * time.Hour
)

// SnapshotStore persists open-trade snapshots to Redis so positions
// survive a restart. Redis is optional: with no client, or when Redis
// goes away mid-run, the store degrades to an in-memory map and the bot
// keeps trading.
type SnapshotStore struct {
	client    *redis.Client
	available atomic.Bool

	mu     sync.RWMutex
	memory map[string]position.Trade // keyed by symbol

	logger zerolog.Logger
}

// NewSnapshotStore connects to Redis when enabled; otherwise it returns a
// memory-only store.
func NewSnapshotStore(cfg config.RedisConfig, logger zerolog.Logger) *SnapshotStore {
	s := &SnapshotStore{
		memory: make(map[string]position.Trade),
		logger: logger.With().Str("component", "snapshot").Logger(),
	}

	if !cfg.Enabled {
		s.logger.Info().Msg("Redis disabled, position snapshots kept in memory only")
		return s
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Redis unreachable, falling back to memory")
		return s
	}

	s.available.Store(true)
	s.logger.Info().Str("address", cfg.Address).Msg("connected to Redis")
	return s
}

func (s *SnapshotStore) key(symbol string) string {
	return snapshotKeyPrefix + symbol
}

// SaveTrade stores the open-trade snapshot for its symbol, overwriting
// any previous snapshot.
func (s *SnapshotStore) SaveTrade(ctx context.Context, t position.Trade) error {
	s.mu.Lock()
	s.memory[t.Symbol] = t
	s.mu.Unlock()

	if !s.available.Load() {
		return nil
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling trade snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(t.Symbol), data, snapshotTTL).Err(); err != nil {
		s.available.Store(false)
		s.logger.Warn().Err(err).Msg("Redis write failed, continuing from memory")
	}
	return nil
}

// DeleteTrade removes the snapshot for a symbol after the trade closes.
func (s *SnapshotStore) DeleteTrade(ctx context.Context, symbol string) error {
	s.mu.Lock()
	delete(s.memory, symbol)
	s.mu.Unlock()

	if !s.available.Load() {
		return nil
	}

	if err := s.client.Del(ctx, s.key(symbol)).Err(); err != nil {
		s.available.Store(false)
		s.logger.Warn().Err(err).Msg("Redis delete failed, continuing from memory")
	}
	return nil
}

// LoadTrades returns every stored open-trade snapshot. Redis is the
// source of truth when reachable; otherwise the in-memory map serves.
func (s *SnapshotStore) LoadTrades(ctx context.Context) ([]position.Trade, error) {
	if s.available.Load() {
		keys, err := s.client.Keys(ctx, snapshotKeyPrefix+"*").Result()
		if err != nil {
			s.available.Store(false)
			s.logger.Warn().Err(err).Msg("Redis scan failed, serving from memory")
		} else {
			trades := make([]position.Trade, 0, len(keys))
			for _, key := range keys {
				data, err := s.client.Get(ctx, key).Bytes()
				if err != nil {
					continue
				}
				var t position.Trade
				if err := json.Unmarshal(data, &t); err != nil {
					s.logger.Warn().Err(err).Str("key", key).Msg("corrupt snapshot skipped")
					continue
				}
				trades = append(trades, t)
			}
			return trades, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	trades := make([]position.Trade, 0, len(s.memory))
	for _, t := range s.memory {
		trades = append(trades, t)
	}
	return trades, nil
}

// Available reports whether Redis is currently backing the store.
func (s *SnapshotStore) Available() bool {
	return s.available.Load()
}

// Close releases the Redis connection.
func (s *SnapshotStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
