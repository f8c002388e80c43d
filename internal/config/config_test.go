package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gridbot/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validYAML = `
exchange:
  name: mock
grid:
  symbol: CRVUSDT
  lower_price: "0.6"
  upper_price: "0.7"
  level_count: 6
  quantity_per_level: "25"
  spacing: linear
  check_interval_seconds: 30
  price_decimals: 4
  qty_decimals: 0
  min_order_value: "5"
system:
  log_level: INFO
  cancel_on_exit: true
`

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Exchange.Name)
	assert.Equal(t, "CRVUSDT", cfg.Grid.Symbol)
	assert.Equal(t, 6, cfg.Grid.LevelCount)
	assert.Equal(t, 30, cfg.Grid.CheckIntervalSeconds)
	assert.True(t, cfg.System.CancelOnExit)
	assert.True(t, cfg.Grid.LowerPriceDec().Equal(decimal.RequireFromString("0.6")))
}

func TestLoadConfig_Defaults(t *testing.T) {
	yaml := `
exchange:
  name: mock
grid:
  symbol: CRVUSDT
  lower_price: "0.6"
  upper_price: "0.7"
  level_count: 6
  quantity_per_level: "25"
  price_decimals: 4
`
	cfg, err := LoadConfig(writeConfig(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, "linear", cfg.Grid.Spacing)
	assert.Equal(t, 60, cfg.Grid.CheckIntervalSeconds)
	assert.Equal(t, "INFO", cfg.System.LogLevel)
	assert.Equal(t, 10, cfg.Exchange.RequestTimeoutSeconds)
	assert.Equal(t, 9090, cfg.Telemetry.MetricsPort)
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_GRID_API_KEY", "key-from-env")
	t.Setenv("TEST_GRID_SECRET", "secret-from-env")

	yaml := `
exchange:
  name: aster
  api_key: ${TEST_GRID_API_KEY}
  secret_key: ${TEST_GRID_SECRET}
grid:
  symbol: CRVUSDT
  lower_price: "0.6"
  upper_price: "0.7"
  level_count: 6
  quantity_per_level: "25"
  price_decimals: 4
`
	cfg, err := LoadConfig(writeConfig(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, Secret("key-from-env"), cfg.Exchange.APIKey)
	assert.Equal(t, Secret("secret-from-env"), cfg.Exchange.SecretKey)
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"unknown exchange", func(c *Config) { c.Exchange.Name = "kraken" }, "exchange.name"},
		{"missing api key", func(c *Config) { c.Exchange.Name = "aster" }, "exchange.api_key"},
		{"missing symbol", func(c *Config) { c.Grid.Symbol = "" }, "grid.symbol"},
		{"bad lower price", func(c *Config) { c.Grid.LowerPrice = "abc" }, "grid.lower_price"},
		{"negative lower price", func(c *Config) { c.Grid.LowerPrice = "-1" }, "grid.lower_price"},
		{"inverted range", func(c *Config) { c.Grid.UpperPrice = "0.5" }, "grid.upper_price"},
		{"single level", func(c *Config) { c.Grid.LevelCount = 1 }, "grid.level_count"},
		{"bad spacing", func(c *Config) { c.Grid.Spacing = "geometric" }, "grid.spacing"},
		{"no sizing", func(c *Config) { c.Grid.QuantityPerLevel = ""; c.Grid.QuoteBudget = "" }, "grid.quantity_per_level"},
		{"too many decimals", func(c *Config) { c.Grid.PriceDecimals = 9 }, "grid.price_decimals"},
		{"bad log level", func(c *Config) { c.System.LogLevel = "TRACE" }, "system.log_level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestResolveQuantity_Explicit(t *testing.T) {
	cfg := DefaultConfig()
	qty, err := cfg.Grid.ResolveQuantity()
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(25)))
}

func TestResolveQuantity_FromQuoteBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.QuantityPerLevel = ""
	cfg.Grid.QuoteBudget = "390"

	// 390 / 6 levels = 65 per level, mid price (0.6+0.7)/2 = 0.65, so 100 units
	qty, err := cfg.Grid.ResolveQuantity()
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(100)), "got %s", qty)
}

func TestResolveQuantity_RoundsDownToQtyDecimals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.QuantityPerLevel = "25.97"
	cfg.Grid.QtyDecimals = 0

	qty, err := cfg.Grid.ResolveQuantity()
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(25)), "got %s", qty)
}

func TestResolveQuantity_BelowMinNotional(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.QuantityPerLevel = "5"
	cfg.Grid.MinOrderValue = "5"

	// 5 * 0.6 = 3.0 notional at the lower bound, below the 5 minimum
	_, err := cfg.Grid.ResolveQuantity()
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderParameter)
}

func TestResolveQuantity_ZeroAfterRounding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.QuantityPerLevel = "0.4"
	cfg.Grid.QtyDecimals = 0
	cfg.Grid.MinOrderValue = ""

	_, err := cfg.Grid.ResolveQuantity()
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrderParameter)
}

func TestConfigString_RedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exchange.APIKey = "super-secret-key"
	cfg.Exchange.SecretKey = "even-more-secret"

	out := cfg.String()
	assert.False(t, strings.Contains(out, "super-secret-key"))
	assert.False(t, strings.Contains(out, "even-more-secret"))
	assert.Contains(t, out, "[REDACTED]")
}
