package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_orders_placed_total",
			Help: "Total number of orders placed",
		},
	)

	OrdersFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_orders_failed_total",
			Help: "Total number of failed order placements",
		},
		[]string{"reason"},
	)

	PaymentsConfirmedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_payments_confirmed_total",
			Help: "Total number of payment confirmations applied",
		},
	)

	DuplicatePaymentEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_duplicate_payment_events_total",
			Help: "Webhook events referencing an already paid order",
		},
	)

	NumbersSoldTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_numbers_sold_total",
			Help: "Numbers sold, by grant source",
		},
		[]string{"source"},
	)

	ReservationsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_reservations_expired_total",
			Help: "Reserved numbers reclaimed by the expiry sweeper",
		},
	)

	AllocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raffle_allocation_duration_seconds",
			Help:    "Histogram of allocation transaction durations",
			Buckets: prometheus.DefBuckets,
		},
	)
)
