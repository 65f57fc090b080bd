package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ordersCreatedTotal counts order/link/QR creation outcomes.
	ordersCreatedTotal *prometheus.CounterVec
	// verificationsTotal counts payment verification outcomes by mode.
	verificationsTotal *prometheus.CounterVec
	// webhooksTotal counts inbound webhook processing outcomes.
	webhooksTotal *prometheus.CounterVec
	// capturesTotal counts manual capture outcomes.
	capturesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers payment-domain
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ordersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of gateway order, payment link and QR creation outcomes.",
		}, []string{"kind", "result"})
		verificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Count of payment verification outcomes by mode.",
		}, []string{"mode", "result"})
		webhooksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhooks_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"result"})
		capturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_captures_total",
			Help:      "Count of manual capture attempts by outcome.",
		}, []string{"result"})

		registerCollector(reg, ordersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ordersCreatedTotal = v
			}
		})
		registerCollector(reg, verificationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				verificationsTotal = v
			}
		})
		registerCollector(reg, webhooksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				webhooksTotal = v
			}
		})
		registerCollector(reg, capturesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				capturesTotal = v
			}
		})
	})
}

// CountOrderCreated records a creation outcome. Safe to call before metrics
// registration (a no-op then), which keeps handlers testable in isolation.
func CountOrderCreated(kind, result string) {
	if ordersCreatedTotal != nil {
		ordersCreatedTotal.WithLabelValues(kind, result).Inc()
	}
}

// CountVerification records a verification outcome.
func CountVerification(mode, result string) {
	if verificationsTotal != nil {
		verificationsTotal.WithLabelValues(mode, result).Inc()
	}
}

// CountWebhook records a webhook processing outcome.
func CountWebhook(result string) {
	if webhooksTotal != nil {
		webhooksTotal.WithLabelValues(result).Inc()
	}
}

// CountCapture records a capture outcome.
func CountCapture(result string) {
	if capturesTotal != nil {
		capturesTotal.WithLabelValues(result).Inc()
	}
}
