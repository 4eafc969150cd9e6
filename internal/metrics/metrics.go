package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	WAIncomingMessages   *prometheus.CounterVec
	WAOutgoingMessages   *prometheus.CounterVec
	EntitlementDecisions *prometheus.CounterVec
	UsageConsumed        *prometheus.CounterVec
	Payments             *prometheus.CounterVec
	PromoValidations     *prometheus.CounterVec
	AIRequests           *prometheus.CounterVec
	AILatency            *prometheus.HistogramVec
	AdminRequests        *prometheus.CounterVec
	Errors               *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			WAIncomingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wa_incoming_messages_total",
				Help:      "Total incoming WhatsApp messages processed.",
			}, []string{"type"}),
			WAOutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wa_outgoing_messages_total",
				Help:      "Total outgoing WhatsApp messages sent.",
			}, []string{"type"}),
			EntitlementDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entitlement_decisions_total",
				Help:      "Rate limit decisions by service and outcome.",
			}, []string{"service", "outcome"}),
			UsageConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_consumed_total",
				Help:      "Quota units consumed by service.",
			}, []string{"service"}),
			Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Payment state transitions by package and status.",
			}, []string{"package", "status"}),
			PromoValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promo_validations_total",
				Help:      "Promo code validations by result.",
			}, []string{"result"}),
			AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_requests_total",
				Help:      "Total AI provider requests by service and outcome.",
			}, []string{"service", "status"}),
			AILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ai_request_duration_seconds",
				Help:      "Latency distribution for AI provider calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"service", "status"}),
			AdminRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_api_requests_total",
				Help:      "Admin API requests by route and status code.",
			}, []string{"route", "code"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.WAIncomingMessages,
			metricsInstance.WAOutgoingMessages,
			metricsInstance.EntitlementDecisions,
			metricsInstance.UsageConsumed,
			metricsInstance.Payments,
			metricsInstance.PromoValidations,
			metricsInstance.AIRequests,
			metricsInstance.AILatency,
			metricsInstance.AdminRequests,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
