package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics counts reconciliation outcomes per callback.
type PaymentMetrics struct {
	callbacks *prometheus.CounterVec
}

// Callback outcome labels.
const (
	CallbackOutcomePaid          = "paid"
	CallbackOutcomeFailed        = "failed"
	CallbackOutcomeDuplicate     = "duplicate"
	CallbackOutcomeAnomaly       = "anomaly"
	CallbackOutcomeGatewayError  = "gateway_error"
	CallbackOutcomeInvalidToken  = "invalid_token"
	CallbackOutcomeOrderNotFound = "order_not_found"
)

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Gateway payment callbacks processed, by reconciliation outcome.",
	}, []string{"outcome"})
	reg.MustRegister(callbacks)
	return &PaymentMetrics{callbacks: callbacks}
}

// IncCallback increments the counter for the given reconciliation outcome.
func (p *PaymentMetrics) IncCallback(outcome string) {
	if p == nil || p.callbacks == nil {
		return
	}
	p.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}
