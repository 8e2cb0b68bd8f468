package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCheckout("success", 20*time.Millisecond)
	m.ObserveCheckout("success", 30*time.Millisecond)
	m.ObserveCheckout("PAYMENT_DECLINED", 10*time.Millisecond)
	m.ReservationOp("reserve", "ok")
	m.PaymentDecision("declined")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkoutTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkoutTotal.WithLabelValues("PAYMENT_DECLINED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservationOps.WithLabelValues("reserve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentDecisions.WithLabelValues("declined")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.checkoutDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCheckout("success", time.Second)
		m.ReservationOp("commit", "ok")
		m.PaymentDecision("approved")
	})
}
