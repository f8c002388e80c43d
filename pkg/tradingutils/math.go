package tradingutils

import (
	"github.com/shopspring/decimal"
)

// RoundPrice rounds a price to the specified decimals
func RoundPrice(price decimal.Decimal, priceDecimals int) decimal.Decimal {
	return price.Round(int32(priceDecimals))
}

// RoundQuantityDown rounds a quantity down to the specified decimals.
// Quantities are always truncated so an order can never exceed its budget.
func RoundQuantityDown(qty decimal.Decimal, qtyDecimals int) decimal.Decimal {
	return qty.RoundDown(int32(qtyDecimals))
}

// Tick returns the minimum price increment for a given number of decimals,
// e.g. decimals=4 -> 0.0001.
func Tick(priceDecimals int) decimal.Decimal {
	return decimal.New(1, -int32(priceDecimals))
}

// PriceKey renders a tick-rounded price with a fixed number of decimals so
// it can be used as a map key for price equality within tick tolerance.
func PriceKey(price decimal.Decimal, priceDecimals int) string {
	return price.Round(int32(priceDecimals)).StringFixed(int32(priceDecimals))
}
