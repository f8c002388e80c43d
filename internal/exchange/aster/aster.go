// Package aster provides connectivity to the Aster futures exchange, a
// Binance-compatible fapi-style REST API.
package aster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"gridbot/internal/config"
	"gridbot/internal/core"
	apperrors "gridbot/pkg/errors"
	gbhttp "gridbot/pkg/http"
)

const defaultBaseURL = "https://fapi.asterdex.com"

// Exchange implements core.IExchange against the Aster REST API
type Exchange struct {
	name    string
	symbol  string
	logger  core.ILogger
	client  *gbhttp.Client
	limiter *rate.Limiter

	priceDecimals int
	qtyDecimals   int
}

// New creates a new Aster exchange adapter
func New(cfg *config.ExchangeConfig, gridCfg *config.GridConfig, logger core.ILogger) *Exchange {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	e := &Exchange{
		name:          "aster",
		symbol:        gridCfg.Symbol,
		logger:        logger.WithField("exchange", "aster"),
		limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitPerSecond),
		priceDecimals: gridCfg.PriceDecimals,
		qtyDecimals:   gridCfg.QtyDecimals,
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	e.client = gbhttp.NewClient(baseURL, timeout, newSigner(cfg.APIKey, cfg.SecretKey))

	return e
}

func (e *Exchange) GetName() string {
	return e.name
}

// CheckHealth pings the API and issues one signed read to verify credentials
func (e *Exchange) CheckHealth(ctx context.Context) error {
	if _, err := e.client.Get(ctx, "/fapi/v1/ping", nil); err != nil {
		return e.mapError(err)
	}
	_, err := e.GetOpenOrders(ctx, e.symbol)
	return err
}

func (e *Exchange) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return decimal.Decimal{}, err
	}

	body, err := e.client.Get(ctx, "/fapi/v1/ticker/price", map[string]string{"symbol": symbol})
	if err != nil {
		return decimal.Decimal{}, e.mapError(err)
	}

	var data struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse ticker response: %w", err)
	}

	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid price %q in ticker response: %w", data.Price, err)
	}
	return price, nil
}

// rawOrder is the wire representation of an open order
type rawOrder struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
}

func (e *Exchange) GetOpenOrders(ctx context.Context, symbol string) ([]*core.Order, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := e.client.Get(ctx, "/fapi/v1/openOrders", map[string]string{"symbol": symbol})
	if err != nil {
		return nil, e.mapError(err)
	}

	var raws []rawOrder
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse open orders response: %w", err)
	}

	orders := make([]*core.Order, 0, len(raws))
	for _, raw := range raws {
		order, err := e.toOrder(raw)
		if err != nil {
			e.logger.Warn("Skipping unparseable open order", "order_id", raw.OrderID, "error", err)
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (e *Exchange) PlaceOrder(ctx context.Context, req *core.PlaceOrderRequest) (*core.Order, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := map[string]string{
		"symbol":      req.Symbol,
		"side":        string(req.Side),
		"type":        "LIMIT",
		"timeInForce": "GTC",
		"price":       req.Price.StringFixed(int32(e.priceDecimals)),
		"quantity":    req.Quantity.StringFixed(int32(e.qtyDecimals)),
	}
	if req.ClientOrderID != "" {
		params["newClientOrderId"] = req.ClientOrderID
	}

	body, err := e.client.Post(ctx, "/fapi/v1/order", params)
	if err != nil {
		return nil, e.mapError(err)
	}

	var raw rawOrder
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse place order response: %w", err)
	}
	return e.toOrder(raw)
}

func (e *Exchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := e.client.Delete(ctx, "/fapi/v1/order", map[string]string{
		"symbol":  symbol,
		"orderId": fmt.Sprintf("%d", orderID),
	})
	if err != nil {
		return e.mapError(err)
	}
	return nil
}

func (e *Exchange) toOrder(raw rawOrder) (*core.Order, error) {
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", raw.Price, err)
	}
	qty, err := decimal.NewFromString(raw.OrigQty)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", raw.OrigQty, err)
	}

	return &core.Order{
		OrderID:       raw.OrderID,
		ClientOrderID: raw.ClientOrderID,
		Symbol:        raw.Symbol,
		Side:          core.Side(raw.Side),
		Price:         price,
		Quantity:      qty,
	}, nil
}

// mapError translates API failures into the standard error taxonomy
func (e *Exchange) mapError(err error) error {
	var apiErr *gbhttp.APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}

	switch apiErr.StatusCode {
	case 401, 403:
		return apperrors.ErrAuthenticationFailed
	case 418, 429:
		return apperrors.ErrRateLimitExceeded
	}
	if apiErr.StatusCode >= 500 {
		return fmt.Errorf("%w: %v", apperrors.ErrSystemOverload, apiErr)
	}

	var errResp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if jsonErr := json.Unmarshal(apiErr.Body, &errResp); jsonErr != nil {
		return fmt.Errorf("aster error (unmarshal failed): %s", string(apiErr.Body))
	}

	switch errResp.Code {
	case -1003:
		return apperrors.ErrRateLimitExceeded
	case -1021:
		return apperrors.ErrTimestampOutOfBounds
	case -1111, -4164:
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidOrderParameter, errResp.Msg)
	case -1121:
		return apperrors.ErrInvalidSymbol
	case -2010:
		return apperrors.ErrOrderRejected
	case -2011, -2013:
		return apperrors.ErrOrderNotFound
	case -2014, -2015:
		return apperrors.ErrAuthenticationFailed
	}

	return fmt.Errorf("aster error %d: %s", errResp.Code, errResp.Msg)
}
