package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"signal-trading-bot/internal/auth"
	"signal-trading-bot/internal/position"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

type commandRequest struct {
	Command  string `json:"command" binding:"required"`
	Argument string `json:"argument"`
}

// Commands the bot loop understands.
var allowedCommands = map[string]bool{
	"start":        true,
	"stop":         true,
	"close":        true, // argument: trade ID
	"close-symbol": true, // argument: symbol
	"set-policy":   true, // argument: scalp, swing or both
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.authManager == nil {
		c.JSON(http.StatusOK, gin.H{"message": "authentication disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}

	token, err := s.authManager.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
			return
		}
		s.logger.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": s.authManager.TokenDuration(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.bot.Status())
}

func (s *Server) handleAccount(c *gin.Context) {
	c.JSON(http.StatusOK, s.bot.Account())
}

func (s *Server) handlePositions(c *gin.Context) {
	trades := s.bot.OpenTrades()
	c.JSON(http.StatusOK, gin.H{"positions": trades, "count": len(trades)})
}

func (s *Server) handleTrades(c *gin.Context) {
	trades := s.bot.ClosedTrades()
	totalPL := lo.SumBy(trades, func(t position.Trade) float64 { return t.ProfitLoss })
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades), "totalPnl": totalPL})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	scalp, swing, err := s.bot.Analyze(c.Request.Context(), symbol)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("on-demand analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"scalp": scalp, "swing": swing})
}

func (s *Server) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.bot.LossSummary())
}

func (s *Server) handleCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command required"})
		return
	}
	if !allowedCommands[req.Command] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command: " + req.Command})
		return
	}
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "command queue requires persistence"})
		return
	}

	if err := s.repo.EnqueueCommand(c.Request.Context(), req.Command, req.Argument); err != nil {
		s.logger.Error().Err(err).Str("command", req.Command).Msg("enqueue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue command"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "command": req.Command})
}
