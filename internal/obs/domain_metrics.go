package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts pricing quote outcomes.
	QuotesTotal *prometheus.CounterVec
	// CheckoutsTotal counts checkout attempts by result.
	CheckoutsTotal *prometheus.CounterVec
	// CheckoutDuration records end-to-end checkout latency in milliseconds.
	CheckoutDuration *prometheus.HistogramVec
	// CouponValidationsTotal counts coupon validations by reason, "ok" when valid.
	CouponValidationsTotal *prometheus.CounterVec
	// CouponRedemptionsTotal counts committed coupon redemptions.
	CouponRedemptionsTotal prometheus.Counter
	// InventoryConflictsTotal counts checkouts rejected for insufficient stock.
	InventoryConflictsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of cart pricing quote outcomes.",
		}, []string{"result"})
		CheckoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Count of checkout attempts by result.",
		}, []string{"source", "result"})
		CheckoutDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "End-to-end checkout latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		CouponValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validations_total",
			Help:      "Count of coupon validations by outcome reason.",
		}, []string{"reason"})
		CouponRedemptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Number of coupon redemptions committed with an order.",
		})
		InventoryConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_conflicts_total",
			Help:      "Number of checkouts rejected because stock ran out.",
		})

		QuotesTotal = registerOrExisting(reg, QuotesTotal)
		CheckoutsTotal = registerOrExisting(reg, CheckoutsTotal)
		CheckoutDuration = registerOrExisting(reg, CheckoutDuration)
		CouponValidationsTotal = registerOrExisting(reg, CouponValidationsTotal)
		CouponRedemptionsTotal = registerOrExisting(reg, CouponRedemptionsTotal)
		InventoryConflictsTotal = registerOrExisting(reg, InventoryConflictsTotal)
	})
}
