package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CheckoutMetrics tracks order placement and payment capture.
type CheckoutMetrics struct {
	checkouts *prometheus.CounterVec
	captures  *prometheus.CounterVec
	revenue   *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout collectors on reg. A nil
// registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petfinder_checkouts_total",
		Help: "Checkout attempts by outcome and error code.",
	}, []string{"outcome", "code"})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petfinder_payment_captures_total",
		Help: "Payment capture attempts by outcome and error code.",
	}, []string{"outcome", "code"})
	revenue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petfinder_captured_amount_cents_total",
		Help: "Captured order totals in minor units.",
	}, []string{"currency"})
	reg.MustRegister(checkouts, captures, revenue)
	return &CheckoutMetrics{checkouts: checkouts, captures: captures, revenue: revenue}
}

// ObserveCheckout records one checkout attempt. code is empty on success.
func (m *CheckoutMetrics) ObserveCheckout(code string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(outcomeOf(code), code).Inc()
}

// ObserveCapture records one capture attempt and, on success, its amount.
func (m *CheckoutMetrics) ObserveCapture(code, currency string, amountCents int64) {
	if m == nil || m.captures == nil {
		return
	}
	m.captures.WithLabelValues(outcomeOf(code), code).Inc()
	if code == "" && amountCents > 0 {
		m.revenue.WithLabelValues(currency).Add(float64(amountCents))
	}
}

func outcomeOf(code string) string {
	if code == "" {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
