// internal/pkg/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shopping_cart"

// Metrics 汇总结算与库存相关的 Prometheus 指标。
// nil *Metrics 的所有方法都是空操作，测试中可以不传。
type Metrics struct {
	checkoutTotal    *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
	reservationOps   *prometheus.CounterVec
	paymentDecisions *prometheus.CounterVec
}

// New 在 reg 上注册全部指标。生产环境传 prometheus.DefaultRegisterer。
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		checkoutTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		checkoutDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "End-to-end checkout latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		reservationOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_operations_total",
			Help:      "Inventory reservation operations by kind and result.",
		}, []string{"op", "result"}),
		paymentDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_decisions_total",
			Help:      "Payment authorization decisions.",
		}, []string{"decision"}),
	}
}

// ObserveCheckout 记录一次结算的结果与耗时；outcome 为 success 或失败原因
func (m *Metrics) ObserveCheckout(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(outcome).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ReservationOp 记录 reserve / commit / release 的结果
func (m *Metrics) ReservationOp(op, result string) {
	if m == nil {
		return
	}
	m.reservationOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) PaymentDecision(decision string) {
	if m == nil {
		return
	}
	m.paymentDecisions.WithLabelValues(decision).Inc()
}
