package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the root configuration for the bot. Every recognized option is
// an explicit field with a default; Load validates once and callers never
// re-check.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Vault     VaultConfig
	Feed      FeedConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Indicator IndicatorConfig
	Scalp     ScalpConfig
	Swing     SwingConfig
	Risk      RiskConfig
	Trailing  TrailingConfig
}

// ServerConfig holds dashboard HTTP server settings.
type ServerConfig struct {
	Enabled        bool
	Host           string
	Port           int
	ProductionMode bool
	AllowedOrigins []string
}

// AuthConfig holds dashboard authentication settings.
type AuthConfig struct {
	Enabled      bool
	JWTSecret    string
	PasswordHash string // bcrypt hash of the dashboard password
	TokenTTLMins int
}

// DatabaseConfig holds PostgreSQL connection settings for the event store.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds the optional position-snapshot store settings.
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

// VaultConfig holds HashiCorp Vault settings for exchange API keys.
type VaultConfig struct {
	Enabled   bool
	Address   string
	Token     string
	MountPath string
}

// FeedConfig holds candle feed settings.
type FeedConfig struct {
	BaseURL    string
	Symbols    []string
	Interval   string
	WindowSize int
	MaxRetries int
}

// SchedulerConfig controls the cron-driven scan loop.
type SchedulerConfig struct {
	// ScanSpec is a cron expression with seconds field, e.g. "*/30 * * * * *".
	ScanSpec        string
	CommandPollSecs int
}

// LoggingConfig controls the zerolog root logger.
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	JSONFormat bool
}

// IndicatorConfig holds every indicator lookback and flag threshold.
type IndicatorConfig struct {
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64

	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int

	BollingerPeriod       int
	BollingerStdDev       float64
	BollingerProximityPct float64 // distance from band, % of price

	ATRPeriod         int
	HighVolatilityPct float64 // ATR as % of price

	ADXPeriod        int
	ADXTrendingLevel float64

	VolumePeriod       int
	VolumeAboveAverage float64 // ratio threshold

	DivergenceLookback int
}

// ScalpConfig parameterizes the high-frequency fusion policy.
type ScalpConfig struct {
	MinConfidence     float64
	FibTolerancePct   float64 // % of swing range
	HarmonicTolerance float64 // % of current price
	SwingLookback     int
}

// SwingConfig parameterizes the low-frequency fusion policy.
type SwingConfig struct {
	MinConfidence     float64
	FibTolerancePct   float64 // % of current price
	HarmonicTolerance float64
	SwingLookback     int
	FastEMAPeriod     int
	SlowEMAPeriod     int
	MomentumPeriod    int
}

// RiskConfig holds position sizing and account limits.
type RiskConfig struct {
	InitialBalance     float64
	AllocationFraction float64 // fraction of balance allocated per trade
	MaxOpenPositions   int
	MaxDrawdown        float64 // fraction of initial balance

	// Confidence-interpolated take-profit ratio.
	ConfidenceLow       float64
	ConfidenceHigh      float64
	TakeProfitRatioLow  float64
	TakeProfitRatioHigh float64

	StopLossPct float64 // default stop distance, % of entry
}

// TrailingConfig holds trailing stop settings.
type TrailingConfig struct {
	Enabled            bool
	ActivationFraction float64 // fraction of target distance before trailing
	TrailFraction      float64 // fraction of the gain given back
}

// Load reads configuration from the environment (with .env support) and
// validates it.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Enabled:        getEnvBool("SERVER_ENABLED", true),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			ProductionMode: getEnvBool("SERVER_PRODUCTION", false),
			AllowedOrigins: getEnvList("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Auth: AuthConfig{
			Enabled:      getEnvBool("AUTH_ENABLED", false),
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
			PasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
			TokenTTLMins: getEnvInt("AUTH_TOKEN_TTL_MINS", 60),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "signal_bot"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "signal_bot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Vault: VaultConfig{
			Enabled:   getEnvBool("VAULT_ENABLED", false),
			Address:   getEnv("VAULT_ADDRESS", "http://localhost:8200"),
			Token:     getEnv("VAULT_TOKEN", ""),
			MountPath: getEnv("VAULT_MOUNT_PATH", "secret"),
		},
		Feed: FeedConfig{
			BaseURL:    getEnv("FEED_BASE_URL", "https://api.binance.com"),
			Symbols:    getEnvList("FEED_SYMBOLS", []string{"BTCUSDT"}),
			Interval:   getEnv("FEED_INTERVAL", "15m"),
			WindowSize: getEnvInt("FEED_WINDOW_SIZE", 100),
			MaxRetries: getEnvInt("FEED_MAX_RETRIES", 3),
		},
		Scheduler: SchedulerConfig{
			ScanSpec:        getEnv("SCHEDULER_SCAN_SPEC", "*/30 * * * * *"),
			CommandPollSecs: getEnvInt("SCHEDULER_COMMAND_POLL_SECS", 5),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			JSONFormat: getEnvBool("LOG_JSON", false),
		},
		Indicator: IndicatorConfig{
			RSIPeriod:     getEnvInt("IND_RSI_PERIOD", 14),
			RSIOversold:   getEnvFloat("IND_RSI_OVERSOLD", 30),
			RSIOverbought: getEnvFloat("IND_RSI_OVERBOUGHT", 70),

			MACDFastPeriod:   getEnvInt("IND_MACD_FAST", 12),
			MACDSlowPeriod:   getEnvInt("IND_MACD_SLOW", 26),
			MACDSignalPeriod: getEnvInt("IND_MACD_SIGNAL", 9),

			BollingerPeriod:       getEnvInt("IND_BB_PERIOD", 20),
			BollingerStdDev:       getEnvFloat("IND_BB_STDDEV", 2.0),
			BollingerProximityPct: getEnvFloat("IND_BB_PROXIMITY_PCT", 1.0),

			ATRPeriod:         getEnvInt("IND_ATR_PERIOD", 14),
			HighVolatilityPct: getEnvFloat("IND_HIGH_VOLATILITY_PCT", 1.5),

			ADXPeriod:        getEnvInt("IND_ADX_PERIOD", 14),
			ADXTrendingLevel: getEnvFloat("IND_ADX_TRENDING", 25),

			VolumePeriod:       getEnvInt("IND_VOLUME_PERIOD", 20),
			VolumeAboveAverage: getEnvFloat("IND_VOLUME_ABOVE_AVG", 1.2),

			DivergenceLookback: getEnvInt("IND_DIVERGENCE_LOOKBACK", 20),
		},
		Scalp: ScalpConfig{
			MinConfidence:     getEnvFloat("SCALP_MIN_CONFIDENCE", 60),
			FibTolerancePct:   getEnvFloat("SCALP_FIB_TOLERANCE_PCT", 2.0),
			HarmonicTolerance: getEnvFloat("SCALP_HARMONIC_TOLERANCE", 1.0),
			SwingLookback:     getEnvInt("SCALP_SWING_LOOKBACK", 3),
		},
		Swing: SwingConfig{
			MinConfidence:     getEnvFloat("SWING_MIN_CONFIDENCE", 55),
			FibTolerancePct:   getEnvFloat("SWING_FIB_TOLERANCE_PCT", 1.0),
			HarmonicTolerance: getEnvFloat("SWING_HARMONIC_TOLERANCE", 1.0),
			SwingLookback:     getEnvInt("SWING_SWING_LOOKBACK", 5),
			FastEMAPeriod:     getEnvInt("SWING_FAST_EMA", 20),
			SlowEMAPeriod:     getEnvInt("SWING_SLOW_EMA", 50),
			MomentumPeriod:    getEnvInt("SWING_MOMENTUM_PERIOD", 10),
		},
		Risk: RiskConfig{
			InitialBalance:     getEnvFloat("RISK_INITIAL_BALANCE", 10000),
			AllocationFraction: getEnvFloat("RISK_ALLOCATION_FRACTION", 0.10),
			MaxOpenPositions:   getEnvInt("RISK_MAX_OPEN_POSITIONS", 5),
			MaxDrawdown:        getEnvFloat("RISK_MAX_DRAWDOWN", 0.20),

			ConfidenceLow:       getEnvFloat("RISK_CONFIDENCE_LOW", 50),
			ConfidenceHigh:      getEnvFloat("RISK_CONFIDENCE_HIGH", 70),
			TakeProfitRatioLow:  getEnvFloat("RISK_TP_RATIO_LOW", 1.5),
			TakeProfitRatioHigh: getEnvFloat("RISK_TP_RATIO_HIGH", 2.5),

			StopLossPct: getEnvFloat("RISK_STOP_LOSS_PCT", 2.0),
		},
		Trailing: TrailingConfig{
			Enabled:            getEnvBool("TRAILING_ENABLED", true),
			ActivationFraction: getEnvFloat("TRAILING_ACTIVATION_FRACTION", 0.5),
			TrailFraction:      getEnvFloat("TRAILING_TRAIL_FRACTION", 0.3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints once at load time.
func (c *Config) Validate() error {
	if c.Risk.AllocationFraction <= 0 || c.Risk.AllocationFraction > 1 {
		return fmt.Errorf("risk: allocation fraction must be in (0,1], got %v", c.Risk.AllocationFraction)
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk: max open positions must be positive, got %d", c.Risk.MaxOpenPositions)
	}
	if c.Risk.MaxDrawdown <= 0 || c.Risk.MaxDrawdown >= 1 {
		return fmt.Errorf("risk: max drawdown must be in (0,1), got %v", c.Risk.MaxDrawdown)
	}
	if c.Risk.ConfidenceHigh <= c.Risk.ConfidenceLow {
		return fmt.Errorf("risk: confidence high (%v) must exceed confidence low (%v)",
			c.Risk.ConfidenceHigh, c.Risk.ConfidenceLow)
	}
	if c.Trailing.TrailFraction <= 0 || c.Trailing.TrailFraction >= 1 {
		return fmt.Errorf("trailing: trail fraction must be in (0,1), got %v", c.Trailing.TrailFraction)
	}
	if c.Indicator.MACDSlowPeriod <= c.Indicator.MACDFastPeriod {
		return fmt.Errorf("indicator: MACD slow period must exceed fast period")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth: AUTH_JWT_SECRET is required when auth is enabled")
	}
	if c.Feed.WindowSize < 60 {
		return fmt.Errorf("feed: window size must be at least 60, got %d", c.Feed.WindowSize)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
