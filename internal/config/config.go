// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	apperrors "gridbot/pkg/errors"
	"gridbot/pkg/tradingutils"
)

// Config represents the complete configuration structure
type Config struct {
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Grid      GridConfig      `yaml:"grid"`
	System    SystemConfig    `yaml:"system"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ExchangeConfig contains exchange connectivity settings
type ExchangeConfig struct {
	Name                  string `yaml:"name"`
	APIKey                Secret `yaml:"api_key"`
	SecretKey             Secret `yaml:"secret_key"`
	BaseURL               string `yaml:"base_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	RateLimitPerSecond    int    `yaml:"rate_limit_per_second"`
}

// GridConfig contains the static grid parameters. Prices and quantities are
// strings so they survive YAML parsing without float rounding.
type GridConfig struct {
	Symbol               string `yaml:"symbol"`
	LowerPrice           string `yaml:"lower_price"`
	UpperPrice           string `yaml:"upper_price"`
	LevelCount           int    `yaml:"level_count"`
	QuantityPerLevel     string `yaml:"quantity_per_level"`
	QuoteBudget          string `yaml:"quote_budget"`
	Spacing              string `yaml:"spacing"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
	PriceDecimals        int    `yaml:"price_decimals"`
	QtyDecimals          int    `yaml:"qty_decimals"`
	MinOrderValue        string `yaml:"min_order_value"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel     string `yaml:"log_level"`
	CancelOnExit bool   `yaml:"cancel_on_exit"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange.RequestTimeoutSeconds == 0 {
		c.Exchange.RequestTimeoutSeconds = 10
	}
	if c.Exchange.RateLimitPerSecond == 0 {
		c.Exchange.RateLimitPerSecond = 5
	}
	if c.Grid.Spacing == "" {
		c.Grid.Spacing = "linear"
	}
	if c.Grid.CheckIntervalSeconds == 0 {
		c.Grid.CheckIntervalSeconds = 60
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.Telemetry.MetricsPort == 0 {
		c.Telemetry.MetricsPort = 9090
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateExchangeConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateGridConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSystemConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateExchangeConfig() error {
	validExchanges := []string{"aster", "binance", "mock"}
	if !contains(validExchanges, c.Exchange.Name) {
		return ValidationError{
			Field:   "exchange.name",
			Value:   c.Exchange.Name,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validExchanges, ", ")),
		}
	}

	if c.Exchange.Name != "mock" {
		if c.Exchange.APIKey == "" {
			return ValidationError{
				Field:   "exchange.api_key",
				Message: "API key is required",
			}
		}
		if c.Exchange.SecretKey == "" {
			return ValidationError{
				Field:   "exchange.secret_key",
				Message: "secret key is required",
			}
		}
	}

	return nil
}

func (c *Config) validateGridConfig() error {
	g := &c.Grid

	if g.Symbol == "" {
		return ValidationError{
			Field:   "grid.symbol",
			Message: "trading symbol is required",
		}
	}

	lower, err := decimal.NewFromString(g.LowerPrice)
	if err != nil {
		return ValidationError{
			Field:   "grid.lower_price",
			Value:   g.LowerPrice,
			Message: "must be a decimal number",
		}
	}
	upper, err := decimal.NewFromString(g.UpperPrice)
	if err != nil {
		return ValidationError{
			Field:   "grid.upper_price",
			Value:   g.UpperPrice,
			Message: "must be a decimal number",
		}
	}

	if !lower.IsPositive() {
		return ValidationError{
			Field:   "grid.lower_price",
			Value:   g.LowerPrice,
			Message: "lower price must be positive",
		}
	}
	if upper.LessThanOrEqual(lower) {
		return ValidationError{
			Field:   "grid.upper_price",
			Value:   g.UpperPrice,
			Message: "upper price must exceed lower price",
		}
	}
	if g.LevelCount < 2 {
		return ValidationError{
			Field:   "grid.level_count",
			Value:   g.LevelCount,
			Message: "at least 2 levels are required",
		}
	}
	if g.CheckIntervalSeconds <= 0 {
		return ValidationError{
			Field:   "grid.check_interval_seconds",
			Value:   g.CheckIntervalSeconds,
			Message: "check interval must be positive",
		}
	}
	if g.PriceDecimals < 0 || g.PriceDecimals > 8 {
		return ValidationError{
			Field:   "grid.price_decimals",
			Value:   g.PriceDecimals,
			Message: "price decimals must be between 0 and 8",
		}
	}
	if g.QtyDecimals < 0 || g.QtyDecimals > 8 {
		return ValidationError{
			Field:   "grid.qty_decimals",
			Value:   g.QtyDecimals,
			Message: "qty decimals must be between 0 and 8",
		}
	}
	if g.Spacing != "linear" && g.Spacing != "logarithmic" {
		return ValidationError{
			Field:   "grid.spacing",
			Value:   g.Spacing,
			Message: "must be one of: linear, logarithmic",
		}
	}

	if g.QuantityPerLevel == "" && g.QuoteBudget == "" {
		return ValidationError{
			Field:   "grid.quantity_per_level",
			Message: "either quantity_per_level or quote_budget is required",
		}
	}
	if g.QuantityPerLevel != "" {
		qty, err := decimal.NewFromString(g.QuantityPerLevel)
		if err != nil || !qty.IsPositive() {
			return ValidationError{
				Field:   "grid.quantity_per_level",
				Value:   g.QuantityPerLevel,
				Message: "must be a positive decimal number",
			}
		}
	}
	if g.QuoteBudget != "" {
		budget, err := decimal.NewFromString(g.QuoteBudget)
		if err != nil || !budget.IsPositive() {
			return ValidationError{
				Field:   "grid.quote_budget",
				Value:   g.QuoteBudget,
				Message: "must be a positive decimal number",
			}
		}
	}
	if g.MinOrderValue != "" {
		if _, err := decimal.NewFromString(g.MinOrderValue); err != nil {
			return ValidationError{
				Field:   "grid.min_order_value",
				Value:   g.MinOrderValue,
				Message: "must be a decimal number",
			}
		}
	}

	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

// LowerPriceDec returns the parsed lower bound. Call after Validate.
func (g *GridConfig) LowerPriceDec() decimal.Decimal {
	d, _ := decimal.NewFromString(g.LowerPrice)
	return d
}

// UpperPriceDec returns the parsed upper bound. Call after Validate.
func (g *GridConfig) UpperPriceDec() decimal.Decimal {
	d, _ := decimal.NewFromString(g.UpperPrice)
	return d
}

// MinOrderValueDec returns the parsed minimum order notional, zero when unset.
func (g *GridConfig) MinOrderValueDec() decimal.Decimal {
	if g.MinOrderValue == "" {
		return decimal.Zero
	}
	d, _ := decimal.NewFromString(g.MinOrderValue)
	return d
}

// ResolveQuantity returns the per-level order quantity. When
// quantity_per_level is set it is used directly; otherwise it is derived
// from quote_budget the way the exchange UI sizes grids: the budget is split
// evenly across levels and converted at the mid price of the range. The
// resulting notional at the lower bound must clear min_order_value.
func (g *GridConfig) ResolveQuantity() (decimal.Decimal, error) {
	var qty decimal.Decimal

	if g.QuantityPerLevel != "" {
		qty = tradingutils.RoundQuantityDown(g.QuantityPerLevelDec(), g.QtyDecimals)
	} else {
		budget, _ := decimal.NewFromString(g.QuoteBudget)
		avgPrice := g.LowerPriceDec().Add(g.UpperPriceDec()).Div(decimal.NewFromInt(2))
		perLevel := budget.Div(decimal.NewFromInt(int64(g.LevelCount)))
		qty = tradingutils.RoundQuantityDown(perLevel.Div(avgPrice), g.QtyDecimals)
	}

	if !qty.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: resolved quantity %s is not positive at %d qty decimals",
			apperrors.ErrInvalidOrderParameter, qty, g.QtyDecimals)
	}

	minNotional := g.MinOrderValueDec()
	if minNotional.IsPositive() {
		// Worst case notional is at the lower bound
		if qty.Mul(g.LowerPriceDec()).LessThan(minNotional) {
			return decimal.Decimal{}, fmt.Errorf("%w: notional %s at lower bound is below minimum %s",
				apperrors.ErrInvalidOrderParameter, qty.Mul(g.LowerPriceDec()), minNotional)
		}
	}

	return qty, nil
}

// QuantityPerLevelDec returns the parsed per-level quantity, zero when unset.
func (g *GridConfig) QuantityPerLevelDec() decimal.Decimal {
	if g.QuantityPerLevel == "" {
		return decimal.Zero
	}
	d, _ := decimal.NewFromString(g.QuantityPerLevel)
	return d
}

// String returns a string representation of the configuration. Secret values
// redact themselves when marshaled.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Name:                  "mock",
			RequestTimeoutSeconds: 10,
			RateLimitPerSecond:    5,
		},
		Grid: GridConfig{
			Symbol:               "CRVUSDT",
			LowerPrice:           "0.6",
			UpperPrice:           "0.7",
			LevelCount:           6,
			QuantityPerLevel:     "25",
			Spacing:              "linear",
			CheckIntervalSeconds: 60,
			PriceDecimals:        4,
			QtyDecimals:          0,
			MinOrderValue:        "5",
		},
		System: SystemConfig{
			LogLevel:     "INFO",
			CancelOnExit: true,
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: false,
		},
	}
}
