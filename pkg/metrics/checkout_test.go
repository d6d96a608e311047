package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestCheckoutMetricsLabelsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.ObserveCheckout("")
	m.ObserveCheckout("EMPTY_CART")
	m.ObserveCapture("", "COP", 49000)
	m.ObserveCapture("INSUFFICIENT_STOCK", "COP", 49000)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := counterValue(mfs, "petfinder_checkouts_total", map[string]string{"code": "EMPTY_CART"})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = counterValue(mfs, "petfinder_checkouts_total", map[string]string{"outcome": OutcomeSuccess})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = counterValue(mfs, "petfinder_captured_amount_cents_total", map[string]string{"currency": "COP"})
	require.NoError(t, err)
	require.Equal(t, 49000.0, got)
}

func TestNilRecordersAreNoops(t *testing.T) {
	var c *CheckoutMetrics
	c.ObserveCheckout("")
	NewCheckoutMetrics(nil).ObserveCapture("", "USD", 10)

	var h *HTTPMetrics
	h.Observe("GET", "/x", 200, time.Millisecond)
	NewHTTPMetrics(nil).Observe("GET", "/x", 200, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)
	h.Observe("POST", "/api/checkout", 201, 10*time.Millisecond)
	h.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := counterValue(mfs, "petfinder_http_requests_total", map[string]string{"route": "/api/checkout"})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = counterValue(mfs, "petfinder_http_requests_total", map[string]string{"route": "unmatched"})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)
}
