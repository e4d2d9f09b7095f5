package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/api"
	"signal-trading-bot/internal/auth"
	"signal-trading-bot/internal/bot"
	"signal-trading-bot/internal/events"
	"signal-trading-bot/internal/execution"
	"signal-trading-bot/internal/feed"
	"signal-trading-bot/internal/fusion"
	"signal-trading-bot/internal/logging"
	"signal-trading-bot/internal/outcome"
	"signal-trading-bot/internal/position"
	"signal-trading-bot/internal/secrets"
	"signal-trading-bot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	// Persistence is optional; the bot runs fully in memory without it.
	var repo *store.Repository
	if cfg.Database.Enabled {
		db, err := store.NewDB(cfg.Database, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		repo = store.NewRepository(db)
	}

	snaps := store.NewSnapshotStore(cfg.Redis, logger)
	defer snaps.Close()

	secretStore, err := secrets.NewStore(cfg.Vault)
	if err != nil {
		logger.Fatal().Err(err).Msg("vault client failed")
	}

	httpFeed := feed.NewHTTPFeed(cfg.Feed, logger)
	if cfg.Vault.Enabled {
		if err := secretStore.Health(ctx); err != nil {
			logger.Warn().Err(err).Msg("vault unhealthy, continuing without exchange credentials")
		} else if creds, err := secretStore.Get(ctx, "binance"); err == nil {
			httpFeed.SetAPIKey(creds.APIKey)
			logger.Info().Msg("exchange credentials loaded from vault")
		} else {
			logger.Warn().Err(err).Msg("no exchange credentials in vault")
		}
	}

	engine := fusion.NewEngine(cfg, logger)
	manager := position.NewManager(cfg.Risk, cfg.Trailing, logger)
	analyzer := outcome.NewAnalyzer(logger)
	executor := execution.NewPaperExecutor(logger)

	tradingBot := bot.New(cfg, httpFeed, engine, manager, analyzer, executor, repo, snaps, bus, logger)
	if err := tradingBot.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("bot start failed")
	}

	var server *api.Server
	if cfg.Server.Enabled {
		var authManager *auth.Manager
		if cfg.Auth.Enabled {
			authManager = auth.NewManager(
				cfg.Auth.JWTSecret,
				cfg.Auth.PasswordHash,
				time.Duration(cfg.Auth.TokenTTLMins)*time.Minute,
			)
		}
		server = api.NewServer(cfg.Server, tradingBot, repo, authManager, bus, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("dashboard server stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	tradingBot.Stop()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
	logger.Info().Msg("goodbye")
}
