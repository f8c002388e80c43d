package core

import (
	"github.com/shopspring/decimal"
)

// Side is the direction of a limit order
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order represents an open order as reported by the exchange. The exchange
// owns this state; the bot only observes it and mutates it via API calls.
type Order struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          Side
	Price         decimal.Decimal
	Quantity      decimal.Decimal
}

// PlaceOrderRequest describes a GTC limit order to be placed
type PlaceOrderRequest struct {
	Symbol        string
	Side          Side
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	ClientOrderID string
}
