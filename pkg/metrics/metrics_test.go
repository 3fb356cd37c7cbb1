package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("POST", "/api/v1/orders", "201", 25*time.Millisecond)
	m.Observe("POST", "/api/v1/orders", "201", 30*time.Millisecond)

	count := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/v1/orders", "201"))
	assert.Equal(t, float64(2), count)
}

func TestPaymentMetricsIncCallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncCallback(CallbackOutcomePaid)
	m.IncCallback(CallbackOutcomeDuplicate)
	m.IncCallback(CallbackOutcomeDuplicate)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.callbacks.WithLabelValues("paid")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.callbacks.WithLabelValues("duplicate")))
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewHTTPMetrics(nil)
	m.Observe("GET", "/health/live", "200", time.Millisecond)

	p := NewPaymentMetrics(nil)
	p.IncCallback(CallbackOutcomeFailed)
}
