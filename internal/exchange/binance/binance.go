// Package binance provides Binance Futures connectivity via the official
// go-binance SDK.
package binance

import (
	"context"
	"errors"
	"fmt"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"gridbot/internal/config"
	"gridbot/internal/core"
	apperrors "gridbot/pkg/errors"
)

// Exchange implements core.IExchange for Binance USD-M futures
type Exchange struct {
	name   string
	client *futures.Client
	logger core.ILogger

	priceDecimals int
	qtyDecimals   int
}

// New creates a new Binance exchange adapter. BaseURL may be overridden to
// point at any Binance-compatible endpoint.
func New(cfg *config.ExchangeConfig, gridCfg *config.GridConfig, logger core.ILogger) *Exchange {
	client := futures.NewClient(string(cfg.APIKey), string(cfg.SecretKey))
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	return &Exchange{
		name:          "binance",
		client:        client,
		logger:        logger.WithField("exchange", "binance"),
		priceDecimals: gridCfg.PriceDecimals,
		qtyDecimals:   gridCfg.QtyDecimals,
	}
}

func (e *Exchange) GetName() string {
	return e.name
}

func (e *Exchange) CheckHealth(ctx context.Context) error {
	if err := e.client.NewPingService().Do(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (e *Exchange) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := e.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, mapError(err)
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			price, err := decimal.NewFromString(p.Price)
			if err != nil {
				return decimal.Decimal{}, fmt.Errorf("invalid price %q for %s: %w", p.Price, symbol, err)
			}
			return price, nil
		}
	}
	return decimal.Decimal{}, fmt.Errorf("%w: no price returned for %s", apperrors.ErrInvalidSymbol, symbol)
}

func (e *Exchange) GetOpenOrders(ctx context.Context, symbol string) ([]*core.Order, error) {
	raw, err := e.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	orders := make([]*core.Order, 0, len(raw))
	for _, o := range raw {
		order, err := toOrder(o.OrderID, o.ClientOrderID, o.Symbol, string(o.Side), o.Price, o.OrigQuantity)
		if err != nil {
			e.logger.Warn("Skipping unparseable open order", "order_id", o.OrderID, "error", err)
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (e *Exchange) PlaceOrder(ctx context.Context, req *core.PlaceOrderRequest) (*core.Order, error) {
	svc := e.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeLimit).
		TimeInForce(futures.TimeInForceTypeGTC).
		Price(req.Price.StringFixed(int32(e.priceDecimals))).
		Quantity(req.Quantity.StringFixed(int32(e.qtyDecimals)))
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toOrder(resp.OrderID, resp.ClientOrderID, resp.Symbol, string(resp.Side), resp.Price, resp.OrigQuantity)
}

func (e *Exchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := e.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func toOrder(orderID int64, clientOrderID, symbol, side, price, qty string) (*core.Order, error) {
	priceDec, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	qtyDec, err := decimal.NewFromString(qty)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", qty, err)
	}

	return &core.Order{
		OrderID:       orderID,
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Side:          core.Side(side),
		Price:         priceDec,
		Quantity:      qtyDec,
	}, nil
}

// mapError translates SDK errors into the standard error taxonomy
func mapError(err error) error {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}

	switch apiErr.Code {
	case -1003, -1015:
		return apperrors.ErrRateLimitExceeded
	case -1021:
		return apperrors.ErrTimestampOutOfBounds
	case -1111, -4164:
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidOrderParameter, apiErr.Message)
	case -1121:
		return apperrors.ErrInvalidSymbol
	case -2010:
		return apperrors.ErrOrderRejected
	case -2011, -2013:
		return apperrors.ErrOrderNotFound
	case -2014, -2015:
		return apperrors.ErrAuthenticationFailed
	}

	return fmt.Errorf("binance error %d: %s", apiErr.Code, apiErr.Message)
}
