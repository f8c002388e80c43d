// Package reconciler converges the exchange's open-order set toward the
// intended grid, one fetch-diff-act cycle at a time.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gridbot/internal/core"
	"gridbot/internal/grid"
	"gridbot/internal/infrastructure/metrics"
	apperrors "gridbot/pkg/errors"
	"gridbot/pkg/retry"
	"gridbot/pkg/tradingutils"
)

// ErrMarketDataUnavailable marks a cycle that was skipped because no usable
// market price could be fetched. Nothing is touched; the next tick retries.
var ErrMarketDataUnavailable = errors.New("market data unavailable")

// Config holds the immutable reconciler parameters
type Config struct {
	Symbol           string
	Interval         time.Duration
	CallTimeout      time.Duration
	PriceDecimals    int
	QuantityPerLevel decimal.Decimal
	CancelOnExit     bool
}

// CycleResult summarizes the actions of a single reconciliation pass
type CycleResult struct {
	MarketPrice decimal.Decimal
	Matched     int
	Placed      int
	Canceled    int
	Failed      int
}

// Reconciler holds no authoritative order state of its own between cycles;
// the exchange's reported open orders are the only truth.
type Reconciler struct {
	exchange core.IExchange
	logger   core.ILogger
	cfg      Config
	levels   []grid.Level
	policy   retry.Policy
}

// New creates a reconciler for a fixed, precomputed set of grid levels
func New(exchange core.IExchange, levels []grid.Level, cfg Config, logger core.ILogger) *Reconciler {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Reconciler{
		exchange: exchange,
		logger:   logger.WithField("component", "reconciler"),
		cfg:      cfg,
		levels:   levels,
		policy:   retry.DefaultPolicy,
	}
}

// SetRetryPolicy overrides the per-action retry policy. Used by tests to
// shrink backoff delays.
func (r *Reconciler) SetRetryPolicy(policy retry.Policy) {
	r.policy = policy
}

// Run executes reconciliation cycles until ctx is canceled. Transient cycle
// failures are logged and absorbed; permanent remote errors end the run.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("Starting reconcile loop",
		"symbol", r.cfg.Symbol,
		"levels", len(r.levels),
		"interval", r.cfg.Interval,
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		result, err := r.Reconcile(ctx)
		switch {
		case err == nil:
			r.logger.Info("Cycle complete",
				"price", result.MarketPrice,
				"matched", result.Matched,
				"placed", result.Placed,
				"canceled", result.Canceled,
				"failed", result.Failed,
			)
		case errors.Is(err, context.Canceled):
			return r.shutdown()
		case apperrors.IsPermanent(err):
			r.logger.Error("Permanent remote error, stopping", "error", err)
			return err
		case errors.Is(err, ErrMarketDataUnavailable):
			r.logger.Warn("Skipping cycle, market data unavailable", "error", err)
		default:
			r.logger.Error("Cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return r.shutdown()
		case <-ticker.C:
		}
	}
}

// Reconcile performs a single fetch-diff-act pass. A cycle where the
// exchange already matches the intended grid issues zero calls beyond the
// two reads.
func (r *Reconciler) Reconcile(ctx context.Context) (CycleResult, error) {
	var result CycleResult
	metrics.CyclesTotal.Inc()

	price, err := r.fetchMarketPrice(ctx)
	if err != nil {
		metrics.CyclesSkipped.Inc()
		return result, err
	}
	result.MarketPrice = price

	open, err := r.fetchOpenOrders(ctx)
	if err != nil {
		metrics.CyclesSkipped.Inc()
		if apperrors.IsPermanent(err) {
			return result, err
		}
		return result, fmt.Errorf("failed to get open orders: %w", err)
	}

	intended := grid.IntendedOrders(r.levels, price, r.cfg.QuantityPerLevel, r.cfg.PriceDecimals)
	stale, missing, matched := r.diff(open, intended)
	result.Matched = matched

	// Cancels run before places so the bot never holds more orders than the
	// grid allows. A level may sit briefly unfilled between the two phases.
	for _, order := range stale {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := r.cancelOrder(ctx, order); err != nil {
			if apperrors.IsPermanent(err) {
				return result, err
			}
			result.Failed++
			metrics.ActionFailures.Inc()
			r.logger.Error("Cancel failed after retries",
				"order_id", order.OrderID,
				"side", order.Side,
				"price", order.Price,
				"error", err,
			)
			continue
		}
		result.Canceled++
		metrics.OrdersCanceled.Inc()
	}

	for _, intent := range missing {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := r.placeOrder(ctx, intent); err != nil {
			if apperrors.IsPermanent(err) {
				return result, err
			}
			result.Failed++
			metrics.ActionFailures.Inc()
			r.logger.Error("Place failed after retries",
				"side", intent.Side,
				"price", intent.Price,
				"error", err,
			)
			continue
		}
		result.Placed++
		metrics.OrdersPlaced.Inc()
	}

	return result, nil
}

func (r *Reconciler) fetchMarketPrice(ctx context.Context) (decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	price, err := r.exchange.GetLatestPrice(callCtx, r.cfg.Symbol)
	if err != nil {
		// A canceled run context is a shutdown, not a data outage
		if errors.Is(err, context.Canceled) || apperrors.IsPermanent(err) {
			return decimal.Decimal{}, err
		}
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrMarketDataUnavailable, err)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: non-positive price %s", ErrMarketDataUnavailable, price)
	}
	return price, nil
}

func (r *Reconciler) fetchOpenOrders(ctx context.Context) ([]*core.Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return r.exchange.GetOpenOrders(callCtx, r.cfg.Symbol)
}

// diff matches remote orders to intended orders by (side, tick-rounded
// price). Rounding both sides to the tick makes the comparison tolerant of
// sub-tick noise in reported prices. An intended order matches at most one
// remote order; extra remote orders at the same key are stale and get
// canceled.
func (r *Reconciler) diff(open []*core.Order, intended []grid.IntendedOrder) (stale []*core.Order, missing []grid.IntendedOrder, matched int) {
	openByKey := make(map[string][]*core.Order, len(open))
	for _, order := range open {
		key := r.orderKey(order.Side, order.Price)
		openByKey[key] = append(openByKey[key], order)
	}

	intendedKeys := make(map[string]bool, len(intended))
	for _, intent := range intended {
		key := r.orderKey(intent.Side, intent.Price)
		intendedKeys[key] = true
		if orders := openByKey[key]; len(orders) > 0 {
			matched++
			stale = append(stale, orders[1:]...)
		} else {
			missing = append(missing, intent)
		}
	}

	for key, orders := range openByKey {
		if !intendedKeys[key] {
			stale = append(stale, orders...)
		}
	}

	return stale, missing, matched
}

func (r *Reconciler) orderKey(side core.Side, price decimal.Decimal) string {
	return string(side) + "@" + tradingutils.PriceKey(price, r.cfg.PriceDecimals)
}

func (r *Reconciler) cancelOrder(ctx context.Context, order *core.Order) error {
	return retry.Do(ctx, r.policy, apperrors.IsTransient, func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()

		err := r.exchange.CancelOrder(callCtx, r.cfg.Symbol, order.OrderID)
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			// Already filled or canceled on the exchange side. The order is
			// gone, which is the desired end state.
			r.logger.Debug("Order already gone", "order_id", order.OrderID)
			return nil
		}
		return err
	})
}

func (r *Reconciler) placeOrder(ctx context.Context, intent grid.IntendedOrder) error {
	// One client order ID for all attempts, so a retry after a timed-out
	// place cannot create a duplicate.
	req := &core.PlaceOrderRequest{
		Symbol:        r.cfg.Symbol,
		Side:          intent.Side,
		Price:         intent.Price,
		Quantity:      intent.Quantity,
		ClientOrderID: "grid-" + uuid.NewString(),
	}

	return retry.Do(ctx, r.policy, apperrors.IsTransient, func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()

		_, err := r.exchange.PlaceOrder(callCtx, req)
		return err
	})
}

// shutdown optionally cancels all of the symbol's open orders before exit
func (r *Reconciler) shutdown() error {
	if !r.cfg.CancelOnExit {
		return nil
	}

	// The run context is already canceled; use a fresh bounded one.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	open, err := r.fetchOpenOrders(ctx)
	if err != nil {
		r.logger.Error("Cancel-on-exit: failed to list open orders", "error", err)
		return nil
	}

	r.logger.Info("Cancel-on-exit: canceling open orders", "count", len(open))
	for _, order := range open {
		if err := r.cancelOrder(ctx, order); err != nil {
			r.logger.Error("Cancel-on-exit: cancel failed",
				"order_id", order.OrderID,
				"error", err,
			)
		}
	}
	return nil
}
