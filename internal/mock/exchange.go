// Package mock provides an in-memory exchange for tests and dry runs
package mock

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"gridbot/internal/core"
	apperrors "gridbot/pkg/errors"
)

// MockExchange implements core.IExchange against in-memory state. Failures
// can be scripted per operation to exercise retry and partial-failure paths.
type MockExchange struct {
	name string

	mu             sync.RWMutex
	price          decimal.Decimal
	orders         map[int64]*core.Order
	clientOrderMap map[string]int64
	orderIDCounter int64

	failures map[string][]error

	priceCalls  int
	listCalls   int
	placeCalls  int
	cancelCalls int
}

// Operation names accepted by FailNext
const (
	OpGetPrice    = "get_price"
	OpListOrders  = "list_orders"
	OpPlaceOrder  = "place_order"
	OpCancelOrder = "cancel_order"
)

func NewMockExchange(name string) *MockExchange {
	return &MockExchange{
		name:           name,
		orders:         make(map[int64]*core.Order),
		clientOrderMap: make(map[string]int64),
		orderIDCounter: 1000,
		failures:       make(map[string][]error),
	}
}

// SetPrice sets the market price returned by GetLatestPrice
func (m *MockExchange) SetPrice(price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = price
}

// FailNext queues errors to be returned by the next calls to the given
// operation, in order. Once the queue drains the operation succeeds again.
func (m *MockExchange) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
}

// SeedOrder installs an open order as if it already existed on the exchange
func (m *MockExchange) SeedOrder(symbol string, side core.Side, price, qty decimal.Decimal) *core.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orderIDCounter++
	order := &core.Order{
		OrderID:  m.orderIDCounter,
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		Quantity: qty,
	}
	m.orders[order.OrderID] = order
	return order
}

// OpenOrderCount returns the number of resting orders
func (m *MockExchange) OpenOrderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// Calls returns how many times each operation was invoked
func (m *MockExchange) Calls() (price, list, place, cancel int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.priceCalls, m.listCalls, m.placeCalls, m.cancelCalls
}

func (m *MockExchange) popFailure(op string) error {
	queue := m.failures[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	m.failures[op] = queue[1:]
	return err
}

func (m *MockExchange) GetName() string {
	return m.name
}

func (m *MockExchange) CheckHealth(ctx context.Context) error {
	return nil
}

func (m *MockExchange) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.priceCalls++
	if err := m.popFailure(OpGetPrice); err != nil {
		return decimal.Decimal{}, err
	}
	return m.price, nil
}

func (m *MockExchange) GetOpenOrders(ctx context.Context, symbol string) ([]*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	if err := m.popFailure(OpListOrders); err != nil {
		return nil, err
	}

	orders := make([]*core.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if o.Symbol == symbol {
			cp := *o
			orders = append(orders, &cp)
		}
	}
	return orders, nil
}

func (m *MockExchange) PlaceOrder(ctx context.Context, req *core.PlaceOrderRequest) (*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.placeCalls++
	if err := m.popFailure(OpPlaceOrder); err != nil {
		return nil, err
	}

	// Idempotency: a retried place with the same client order ID returns the
	// existing order instead of creating a duplicate.
	if req.ClientOrderID != "" {
		if existingID, exists := m.clientOrderMap[req.ClientOrderID]; exists {
			if existing, ok := m.orders[existingID]; ok {
				cp := *existing
				return &cp, nil
			}
		}
	}

	m.orderIDCounter++
	order := &core.Order{
		OrderID:       m.orderIDCounter,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Price:         req.Price,
		Quantity:      req.Quantity,
	}
	m.orders[order.OrderID] = order
	if req.ClientOrderID != "" {
		m.clientOrderMap[req.ClientOrderID] = order.OrderID
	}

	cp := *order
	return &cp, nil
}

func (m *MockExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelCalls++
	if err := m.popFailure(OpCancelOrder); err != nil {
		return err
	}

	if _, exists := m.orders[orderID]; !exists {
		return apperrors.ErrOrderNotFound
	}
	delete(m.orders, orderID)
	return nil
}
