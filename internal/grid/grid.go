// Package grid computes static grid price levels and the limit orders that
// should exist for them at a given market price.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"gridbot/internal/core"
	"gridbot/pkg/tradingutils"
)

var (
	// ErrInvalidConfig is returned for unusable grid bounds or level counts
	ErrInvalidConfig = errors.New("invalid grid config")
	// ErrDegenerateGrid is returned when tick rounding collapses two levels
	// onto the same price
	ErrDegenerateGrid = errors.New("degenerate grid")
)

// Spacing selects how levels are distributed between the bounds
type Spacing string

const (
	// SpacingLinear spaces levels with equal absolute price gaps
	SpacingLinear Spacing = "linear"
	// SpacingLogarithmic spaces levels with equal percentage gaps, denser
	// near the lower bound in absolute terms
	SpacingLogarithmic Spacing = "logarithmic"
)

// ParseSpacing parses a spacing mode string
func ParseSpacing(s string) (Spacing, error) {
	switch Spacing(s) {
	case SpacingLinear, SpacingLogarithmic:
		return Spacing(s), nil
	default:
		return "", fmt.Errorf("%w: unknown spacing mode %q", ErrInvalidConfig, s)
	}
}

// Config holds the static parameters a grid is computed from
type Config struct {
	Symbol        string
	LowerPrice    decimal.Decimal
	UpperPrice    decimal.Decimal
	LevelCount    int
	Spacing       Spacing
	PriceDecimals int
}

// Level is a single grid price point, immutable once computed
type Level struct {
	Index int
	Price decimal.Decimal
}

// IntendedOrder is an order that should exist on the exchange for one grid
// level at the current market price. Recomputed every cycle, never stored.
type IntendedOrder struct {
	Side     core.Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// ComputeLevels maps the configured bounds to an ascending sequence of
// exactly LevelCount prices, rounded to the exchange tick. The sequence is
// verified to be strictly increasing after rounding.
func ComputeLevels(cfg Config) ([]Level, error) {
	if cfg.LevelCount < 2 {
		return nil, fmt.Errorf("%w: level count %d, need at least 2", ErrInvalidConfig, cfg.LevelCount)
	}
	if !cfg.LowerPrice.IsPositive() {
		return nil, fmt.Errorf("%w: lower price %s must be positive", ErrInvalidConfig, cfg.LowerPrice)
	}
	if cfg.UpperPrice.LessThanOrEqual(cfg.LowerPrice) {
		return nil, fmt.Errorf("%w: upper price %s must exceed lower price %s",
			ErrInvalidConfig, cfg.UpperPrice, cfg.LowerPrice)
	}

	n := cfg.LevelCount
	levels := make([]Level, 0, n)

	switch cfg.Spacing {
	case SpacingLinear:
		step := cfg.UpperPrice.Sub(cfg.LowerPrice).Div(decimal.NewFromInt(int64(n - 1)))
		for i := 0; i < n; i++ {
			price := cfg.LowerPrice.Add(step.Mul(decimal.NewFromInt(int64(i))))
			levels = append(levels, Level{
				Index: i,
				Price: tradingutils.RoundPrice(price, cfg.PriceDecimals),
			})
		}

	case SpacingLogarithmic:
		lower, _ := cfg.LowerPrice.Float64()
		upper, _ := cfg.UpperPrice.Float64()
		for i := 0; i < n; i++ {
			var price decimal.Decimal
			switch i {
			case 0:
				price = cfg.LowerPrice
			case n - 1:
				// Endpoints are exact; float exponentiation only decides
				// the interior points.
				price = cfg.UpperPrice
			default:
				exp := float64(i) / float64(n-1)
				price = decimal.NewFromFloat(lower * math.Pow(upper/lower, exp))
			}
			levels = append(levels, Level{
				Index: i,
				Price: tradingutils.RoundPrice(price, cfg.PriceDecimals),
			})
		}

	default:
		return nil, fmt.Errorf("%w: unknown spacing mode %q", ErrInvalidConfig, cfg.Spacing)
	}

	for i := 1; i < len(levels); i++ {
		if !levels[i].Price.GreaterThan(levels[i-1].Price) {
			return nil, fmt.Errorf("%w: levels %d and %d both round to %s at %d decimals",
				ErrDegenerateGrid, i-1, i, levels[i].Price, cfg.PriceDecimals)
		}
	}

	return levels, nil
}

// IntendedOrders derives the order set for the given levels at the current
// market price: BUY below market, SELL above. A level within half a tick of
// the market price is skipped, since neither side can rest there without
// risking an immediate fill. Pure, same inputs always yield the same set.
func IntendedOrders(levels []Level, marketPrice, quantity decimal.Decimal, priceDecimals int) []IntendedOrder {
	halfTick := tradingutils.Tick(priceDecimals).Div(decimal.NewFromInt(2))

	orders := make([]IntendedOrder, 0, len(levels))
	for _, level := range levels {
		if level.Price.Sub(marketPrice).Abs().LessThanOrEqual(halfTick) {
			continue
		}

		side := core.SideBuy
		if level.Price.GreaterThan(marketPrice) {
			side = core.SideSell
		}

		orders = append(orders, IntendedOrder{
			Side:     side,
			Price:    level.Price,
			Quantity: quantity,
		})
	}
	return orders
}
