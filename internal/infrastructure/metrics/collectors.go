package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation counters
var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_reconcile_cycles_total",
		Help: "Total number of reconciliation cycles started",
	})
	CyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_reconcile_cycles_skipped_total",
		Help: "Cycles skipped because exchange state could not be fetched",
	})
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_orders_placed_total",
		Help: "Limit orders successfully placed",
	})
	OrdersCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_orders_canceled_total",
		Help: "Stale orders successfully canceled",
	})
	ActionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_order_action_failures_total",
		Help: "Cancel or place actions that failed after exhausting retries",
	})
)
