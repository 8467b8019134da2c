package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wnt/hedgemon/internal/analyzer"
)

// Config holds all configuration for Hedgemon
type Config struct {
	// Portfolio API configuration
	OctavAPIURL string
	OctavAPIKey string

	// Hedge venue configuration
	HyperliquidAPIURL string

	// Wallets to analyze
	WalletAddresses []string

	// Hedge analysis thresholds, all percentages
	TolerancePct   decimal.Decimal
	TriggerPct     decimal.Decimal
	CoverageMinPct decimal.Decimal
	CoverageMaxPct decimal.Decimal

	// Capital allocation band
	LPMinIdealPct decimal.Decimal
	LPTargetPct   decimal.Decimal
	LPMaxIdealPct decimal.Decimal

	// Order sizing
	SlippagePct            decimal.Decimal
	MinOrderNotionalUSD    decimal.Decimal
	AllowPrecisionFallback bool
	FallbackSizeDecimals   int

	// Protocol filter, empty means all protocols
	EnabledProtocols []string

	// Redis configuration
	RedisURL string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Worker configuration
	MinWorkers int
	MaxWorkers int

	// Sync configuration
	SyncInterval time.Duration

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		OctavAPIURL:       getEnv("OCTAV_API_URL", "https://api.octav.fi"),
		OctavAPIKey:       getEnv("OCTAV_API_KEY", ""),
		HyperliquidAPIURL: getEnv("HYPERLIQUID_API_URL", "https://api.hyperliquid.xyz"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", ""),
		DBSSLMode:         getEnv("DB_SSL_MODE", "disable"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MetricsPort:       getEnv("METRICS_PORT", "9100"),
	}

	walletsStr := getEnv("WALLET_ADDRESSES", "")
	if walletsStr == "" {
		return cfg, fmt.Errorf("WALLET_ADDRESSES environment variable is required")
	}
	cfg.WalletAddresses = splitAndTrim(walletsStr)

	cfg.EnabledProtocols = splitAndTrim(getEnv("ENABLED_PROTOCOLS", ""))

	var err error
	if cfg.TolerancePct, err = parseDecimalEnv("TOLERANCE_PCT", "5"); err != nil {
		return cfg, fmt.Errorf("invalid TOLERANCE_PCT: %w", err)
	}
	if cfg.TriggerPct, err = parseDecimalEnv("HEDGE_TRIGGER_PCT", "10"); err != nil {
		return cfg, fmt.Errorf("invalid HEDGE_TRIGGER_PCT: %w", err)
	}
	if cfg.CoverageMinPct, err = parseDecimalEnv("COVERAGE_MIN_PCT", "98"); err != nil {
		return cfg, fmt.Errorf("invalid COVERAGE_MIN_PCT: %w", err)
	}
	if cfg.CoverageMaxPct, err = parseDecimalEnv("COVERAGE_MAX_PCT", "102"); err != nil {
		return cfg, fmt.Errorf("invalid COVERAGE_MAX_PCT: %w", err)
	}
	if cfg.LPMinIdealPct, err = parseDecimalEnv("LP_MIN_IDEAL_PCT", "70"); err != nil {
		return cfg, fmt.Errorf("invalid LP_MIN_IDEAL_PCT: %w", err)
	}
	if cfg.LPTargetPct, err = parseDecimalEnv("LP_TARGET_PCT", "80"); err != nil {
		return cfg, fmt.Errorf("invalid LP_TARGET_PCT: %w", err)
	}
	if cfg.LPMaxIdealPct, err = parseDecimalEnv("LP_MAX_IDEAL_PCT", "90"); err != nil {
		return cfg, fmt.Errorf("invalid LP_MAX_IDEAL_PCT: %w", err)
	}
	if cfg.SlippagePct, err = parseDecimalEnv("SLIPPAGE_PCT", "5"); err != nil {
		return cfg, fmt.Errorf("invalid SLIPPAGE_PCT: %w", err)
	}
	if cfg.MinOrderNotionalUSD, err = parseDecimalEnv("MIN_ORDER_NOTIONAL", "10"); err != nil {
		return cfg, fmt.Errorf("invalid MIN_ORDER_NOTIONAL: %w", err)
	}

	cfg.AllowPrecisionFallback = parseBoolEnv("ALLOW_PRECISION_FALLBACK", false)

	if cfg.FallbackSizeDecimals, err = parseIntEnv("FALLBACK_SIZE_DECIMALS", 2); err != nil {
		return cfg, fmt.Errorf("invalid FALLBACK_SIZE_DECIMALS: %w", err)
	}
	if cfg.MinWorkers, err = parseIntEnv("MIN_WORKERS", 2); err != nil {
		return cfg, fmt.Errorf("invalid MIN_WORKERS: %w", err)
	}
	if cfg.MaxWorkers, err = parseIntEnv("MAX_WORKERS", 10); err != nil {
		return cfg, fmt.Errorf("invalid MAX_WORKERS: %w", err)
	}
	if cfg.SyncInterval, err = parseDurationEnv("SYNC_INTERVAL", 5*time.Minute); err != nil {
		return cfg, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// HedgeConfig builds the deviation thresholds for the hedge analyzer.
func (c Config) HedgeConfig() analyzer.HedgeConfig {
	return analyzer.HedgeConfig{
		TolerancePct:   c.TolerancePct,
		TriggerPct:     c.TriggerPct,
		CoverageMinPct: c.CoverageMinPct,
		CoverageMaxPct: c.CoverageMaxPct,
	}
}

// AllocationBand builds the LP share band for the allocation engine.
func (c Config) AllocationBand() analyzer.AllocationBand {
	return analyzer.AllocationBand{
		MinIdealPct: c.LPMinIdealPct,
		TargetPct:   c.LPTargetPct,
		MaxIdealPct: c.LPMaxIdealPct,
	}
}

// SizerConfig builds the order sizing parameters.
func (c Config) SizerConfig() analyzer.SizerConfig {
	return analyzer.SizerConfig{
		SlippagePct:          c.SlippagePct,
		MinNotionalUSD:       c.MinOrderNotionalUSD,
		AllowFallback:        c.AllowPrecisionFallback,
		FallbackSizeDecimals: int32(c.FallbackSizeDecimals),
	}
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.OctavAPIKey == "" {
		return fmt.Errorf("OCTAV_API_KEY is required")
	}

	if len(c.WalletAddresses) == 0 {
		return fmt.Errorf("at least one wallet address is required")
	}

	hundred := decimal.NewFromInt(100)
	if c.TolerancePct.Sign() < 0 || c.TolerancePct.Cmp(hundred) > 0 {
		return fmt.Errorf("TOLERANCE_PCT must be between 0 and 100, got %s", c.TolerancePct)
	}

	if c.TriggerPct.Sign() <= 0 {
		return fmt.Errorf("HEDGE_TRIGGER_PCT must be positive, got %s", c.TriggerPct)
	}

	if c.CoverageMaxPct.Cmp(c.CoverageMinPct) <= 0 {
		return fmt.Errorf("COVERAGE_MAX_PCT %s must exceed COVERAGE_MIN_PCT %s", c.CoverageMaxPct, c.CoverageMinPct)
	}

	if err := c.AllocationBand().Validate(); err != nil {
		return err
	}

	if c.SlippagePct.Sign() < 0 || c.SlippagePct.Cmp(hundred) >= 0 {
		return fmt.Errorf("SLIPPAGE_PCT must be in [0, 100), got %s", c.SlippagePct)
	}

	if c.MinOrderNotionalUSD.Sign() < 0 {
		return fmt.Errorf("MIN_ORDER_NOTIONAL must not be negative, got %s", c.MinOrderNotionalUSD)
	}

	if c.FallbackSizeDecimals < 0 {
		return fmt.Errorf("FALLBACK_SIZE_DECIMALS must not be negative")
	}

	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.MinWorkers < 1 {
		return fmt.Errorf("MIN_WORKERS must be at least 1")
	}

	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	}

	if c.SyncInterval < time.Second {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1s")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

// parseDecimalEnv parses a decimal environment variable with a default value
func parseDecimalEnv(key, defaultValue string) (decimal.Decimal, error) {
	str := os.Getenv(key)
	if str == "" {
		str = defaultValue
	}
	return decimal.NewFromString(str)
}

// parseBoolEnv parses a boolean environment variable with a default value
func parseBoolEnv(key string, defaultValue bool) bool {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(str)
	if err != nil {
		return defaultValue
	}
	return v
}

// parseDurationEnv parses a duration environment variable with a default value
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
