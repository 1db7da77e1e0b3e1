package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the relay's Prometheus instruments. A Registerer is
// injected so tests can use a private registry.
type Metrics struct {
	OrdersCreated    prometheus.Counter
	Captures         *prometheus.CounterVec
	ProcessorLatency *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "orders_created_total",
			Help:      "Orders successfully opened at the processor.",
		}),
		Captures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "captures_total",
			Help:      "Capture attempts by outcome.",
		}, []string{"outcome"}),
		ProcessorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "processor_request_seconds",
			Help:      "Round-trip time of calls to the PayPal API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
