package orderbook

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "orderbook"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of limit orders placed.
	PlacedOrders metrics.Counter
	// Number of limit orders canceled, by reason.
	CanceledOrders metrics.Counter
	// Number of limit orders expired.
	ExpiredOrders metrics.Counter
	// Number of resting orders touched by deals.
	ExecutedOrders metrics.Counter
	// Number of market orders, including crossing limit orders and swaps.
	MarketOrders metrics.Counter
	// Number of expirations that could not be serviced.
	ExpirationFailures metrics.Counter
	// Number of resting orders shrunk or canceled by alignment.
	AlignedOrders metrics.Counter
	// Number of resting orders that could not be aligned.
	AlignmentFailures metrics.Counter
	// Number of order books.
	OrderBooks metrics.Gauge
	// Weight consumed by the expiration service per block.
	ServiceWeight metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		PlacedOrders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "placed_orders",
			Help:      "Number of limit orders placed.",
		}, []string{}),
		CanceledOrders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "canceled_orders",
			Help:      "Number of limit orders canceled.",
		}, []string{"reason"}),
		ExpiredOrders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "expired_orders",
			Help:      "Number of limit orders expired.",
		}, []string{}),
		ExecutedOrders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "executed_orders",
			Help:      "Number of resting limit orders touched by deals.",
		}, []string{}),
		MarketOrders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "market_orders",
			Help:      "Number of market orders executed.",
		}, []string{}),
		ExpirationFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "expiration_failures",
			Help:      "Number of scheduled expirations that could not be serviced.",
		}, []string{}),
		AlignedOrders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "aligned_orders",
			Help:      "Number of resting orders shrunk or canceled by alignment.",
		}, []string{}),
		AlignmentFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "alignment_failures",
			Help:      "Number of resting orders that could not be aligned.",
		}, []string{}),
		OrderBooks: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "order_books",
			Help:      "Number of order books.",
		}, []string{}),
		ServiceWeight: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "service_weight",
			Help:      "Weight consumed by the expiration service per block.",
			Buckets:   stdprometheus.ExponentialBuckets(float64(ServiceBaseWeight), 4, 10),
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		PlacedOrders:       discard.NewCounter(),
		CanceledOrders:     discard.NewCounter(),
		ExpiredOrders:      discard.NewCounter(),
		ExecutedOrders:     discard.NewCounter(),
		MarketOrders:       discard.NewCounter(),
		ExpirationFailures: discard.NewCounter(),
		AlignedOrders:      discard.NewCounter(),
		AlignmentFailures:  discard.NewCounter(),
		OrderBooks:         discard.NewGauge(),
		ServiceWeight:      discard.NewHistogram(),
	}
}
