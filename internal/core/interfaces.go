// Package core defines the core types and interfaces for the grid bot
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// IExchange defines the remote exchange surface the bot depends on. All
// calls are blocking; callers bound them with a per-call timeout context.
type IExchange interface {
	GetName() string
	CheckHealth(ctx context.Context) error

	// Market data
	GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// Order operations
	GetOpenOrders(ctx context.Context, symbol string) ([]*Order, error)
	PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
