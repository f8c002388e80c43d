package mock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot/internal/core"
	apperrors "gridbot/pkg/errors"
)

func TestPlaceOrder_IdempotentByClientOrderID(t *testing.T) {
	m := NewMockExchange("mock")
	ctx := context.Background()

	req := &core.PlaceOrderRequest{
		Symbol:        "CRVUSDT",
		Side:          core.SideBuy,
		Price:         decimal.RequireFromString("0.62"),
		Quantity:      decimal.NewFromInt(25),
		ClientOrderID: "grid-test-1",
	}

	first, err := m.PlaceOrder(ctx, req)
	require.NoError(t, err)
	second, err := m.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, m.OpenOrderCount())
}

func TestCancelOrder_MissingOrderReturnsNotFound(t *testing.T) {
	m := NewMockExchange("mock")
	err := m.CancelOrder(context.Background(), "CRVUSDT", 12345)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestFailNext_DrainsInOrder(t *testing.T) {
	m := NewMockExchange("mock")
	m.SetPrice(decimal.NewFromInt(1))
	m.FailNext(OpGetPrice, apperrors.ErrNetwork, apperrors.ErrRateLimitExceeded)
	ctx := context.Background()

	_, err := m.GetLatestPrice(ctx, "CRVUSDT")
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	_, err = m.GetLatestPrice(ctx, "CRVUSDT")
	assert.ErrorIs(t, err, apperrors.ErrRateLimitExceeded)

	price, err := m.GetLatestPrice(ctx, "CRVUSDT")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(1)))
}
