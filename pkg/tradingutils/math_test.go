package tradingutils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, "0.6215", RoundPrice(decimal.RequireFromString("0.62149"), 4).String())
	assert.Equal(t, "0.6214", RoundPrice(decimal.RequireFromString("0.62144"), 4).String())
	assert.Equal(t, "1", RoundPrice(decimal.RequireFromString("1.4"), 0).String())
}

func TestRoundQuantityDown(t *testing.T) {
	assert.Equal(t, "25", RoundQuantityDown(decimal.RequireFromString("25.99"), 0).String())
	assert.Equal(t, "0.01", RoundQuantityDown(decimal.RequireFromString("0.0199"), 2).String())
	assert.Equal(t, "0", RoundQuantityDown(decimal.RequireFromString("0.9"), 0).String())
}

func TestTick(t *testing.T) {
	assert.Equal(t, "0.0001", Tick(4).String())
	assert.Equal(t, "0.01", Tick(2).String())
	assert.Equal(t, "1", Tick(0).String())
}

func TestPriceKey(t *testing.T) {
	// Sub-tick noise collapses to the same key
	assert.Equal(t, PriceKey(decimal.RequireFromString("1.25"), 2), PriceKey(decimal.RequireFromString("1.2501"), 2))
	assert.Equal(t, "1.25", PriceKey(decimal.RequireFromString("1.25"), 2))
	assert.NotEqual(t, PriceKey(decimal.RequireFromString("1.25"), 2), PriceKey(decimal.RequireFromString("1.26"), 2))
}
