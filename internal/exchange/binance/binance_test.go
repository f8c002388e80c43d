package binance

import (
	"context"
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gridbot/pkg/errors"
)

func TestMapError_APICodes(t *testing.T) {
	cases := []struct {
		name string
		code int64
		want error
	}{
		{"request weight", -1003, apperrors.ErrRateLimitExceeded},
		{"order rate", -1015, apperrors.ErrRateLimitExceeded},
		{"timestamp drift", -1021, apperrors.ErrTimestampOutOfBounds},
		{"bad precision", -1111, apperrors.ErrInvalidOrderParameter},
		{"price filter", -4164, apperrors.ErrInvalidOrderParameter},
		{"unknown symbol", -1121, apperrors.ErrInvalidSymbol},
		{"rejected", -2010, apperrors.ErrOrderRejected},
		{"unknown order", -2011, apperrors.ErrOrderNotFound},
		{"no such order", -2013, apperrors.ErrOrderNotFound},
		{"bad api key format", -2014, apperrors.ErrAuthenticationFailed},
		{"invalid key", -2015, apperrors.ErrAuthenticationFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := mapError(&common.APIError{Code: tc.code, Message: "test"})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMapError_Classification(t *testing.T) {
	assert.True(t, apperrors.IsTransient(mapError(&common.APIError{Code: -1003})))
	assert.True(t, apperrors.IsPermanent(mapError(&common.APIError{Code: -2015})))
	assert.True(t, apperrors.IsPermanent(mapError(&common.APIError{Code: -1121})))
}

func TestMapError_NetworkError(t *testing.T) {
	err := mapError(errors.New("dial tcp: i/o timeout"))
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestMapError_ContextErrorsPassThrough(t *testing.T) {
	assert.ErrorIs(t, mapError(context.Canceled), context.Canceled)
	assert.ErrorIs(t, mapError(context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestMapError_UnknownCodeKeepsDetail(t *testing.T) {
	err := mapError(&common.APIError{Code: -9999, Message: "something new"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-9999")
	assert.Contains(t, err.Error(), "something new")
}

func TestToOrder(t *testing.T) {
	order, err := toOrder(7, "grid-xyz", "BTCUSDT", "SELL", "65000.5", "0.01")
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.OrderID)
	assert.Equal(t, "grid-xyz", order.ClientOrderID)
	assert.True(t, order.Price.Equal(decimal.RequireFromString("65000.5")))
	assert.True(t, order.Quantity.Equal(decimal.RequireFromString("0.01")))

	_, err = toOrder(8, "", "BTCUSDT", "BUY", "bad", "1")
	assert.Error(t, err)
}
