// Package store is the persistence boundary: an append-only PostgreSQL
// event log for signals and trades, a small pending-command queue, and a
// Redis position-snapshot store with an in-memory fallback. The decision
// core never touches this package; the bot orchestrator writes through it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"signal-trading-bot/config"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB connects to PostgreSQL and verifies the connection.
func NewDB(cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logger.With().Str("component", "store").Logger()
	log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: log}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations creates the event tables and the command queue.
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signal_events (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			policy VARCHAR(10) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			confidence DECIMAL(6, 2) NOT NULL,
			quality VARCHAR(10) NOT NULL,
			meets_threshold BOOLEAN NOT NULL,
			components JSONB,
			price DECIMAL(20, 8) NOT NULL,
			signal_time TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_events_symbol ON signal_events(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_events_time ON signal_events(signal_time)`,

		`CREATE TABLE IF NOT EXISTS trade_events (
			id SERIAL PRIMARY KEY,
			trade_id VARCHAR(36) NOT NULL,
			event_type VARCHAR(10) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			entry_price DECIMAL(20, 8),
			exit_price DECIMAL(20, 8),
			stop_price DECIMAL(20, 8),
			target_price DECIMAL(20, 8),
			quantity DECIMAL(20, 8),
			confidence DECIMAL(6, 2),
			exit_reason VARCHAR(20),
			pnl DECIMAL(20, 8),
			pnl_percent DECIMAL(10, 4),
			payload JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_trade ON trade_events(trade_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_symbol ON trade_events(symbol)`,

		`CREATE TABLE IF NOT EXISTS pending_commands (
			id SERIAL PRIMARY KEY,
			command VARCHAR(20) NOT NULL,
			argument VARCHAR(64),
			status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			applied_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_commands_status ON pending_commands(status)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Int("count", len(migrations)).Msg("migrations complete")
	return nil
}
