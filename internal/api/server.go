// Package api serves the dashboard: REST endpoints for status, positions,
// trades, on-demand analysis and the loss summary, plus a websocket relay
// of bot events. The API never mutates trading state directly; control
// actions go through the persisted command queue and are applied by the
// bot loop.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"signal-trading-bot/config"
	"signal-trading-bot/internal/auth"
	"signal-trading-bot/internal/events"
	"signal-trading-bot/internal/fusion"
	"signal-trading-bot/internal/outcome"
	"signal-trading-bot/internal/position"
	"signal-trading-bot/internal/store"
)

// BotAPI is what the bot exposes to the dashboard.
type BotAPI interface {
	Status() map[string]interface{}
	Account() position.AccountState
	OpenTrades() []position.Trade
	ClosedTrades() []position.Trade
	Analyze(ctx context.Context, symbol string) (scalp, swing fusion.AnalysisResult, err error)
	LossSummary() outcome.Summary
}

// Server is the dashboard HTTP server.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	bot         BotAPI
	repo        *store.Repository
	authManager *auth.Manager // nil when auth is disabled
	hub         *Hub
	cfg         config.ServerConfig
	logger      zerolog.Logger
}

// NewServer builds the router and wires the websocket hub to the event
// bus. authManager may be nil to disable authentication; repo may be nil
// when persistence is disabled, which makes the command queue unavailable.
func NewServer(
	cfg config.ServerConfig,
	bot BotAPI,
	repo *store.Repository,
	authManager *auth.Manager,
	bus *events.Bus,
	logger zerolog.Logger,
) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:      router,
		bot:         bot,
		repo:        repo,
		authManager: authManager,
		hub:         NewHub(logger),
		cfg:         cfg,
		logger:      logger.With().Str("component", "api").Logger(),
	}

	go s.hub.Run()
	if bus != nil {
		bus.SubscribeAll(s.hub.BroadcastEvent)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.POST("/api/login", s.handleLogin)

	protected := s.router.Group("/api")
	protected.Use(auth.Middleware(s.authManager))
	{
		protected.GET("/status", s.handleStatus)
		protected.GET("/account", s.handleAccount)
		protected.GET("/positions", s.handlePositions)
		protected.GET("/trades", s.handleTrades)
		protected.GET("/analysis/:symbol", s.handleAnalysis)
		protected.GET("/summary", s.handleSummary)
		protected.POST("/commands", s.handleCommand)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("dashboard server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
