package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics groups the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	StockRecomputes   *prometheus.CounterVec
	CouponRedemptions *prometheus.CounterVec
	CheckoutPreviews  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		StockRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "stock_recomputes_total",
			Help:      "Variant stock recomputes by outcome.",
		}, []string{"outcome"}),
		CouponRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coupon",
			Name:      "redemptions_total",
			Help:      "Coupon redemption attempts by result.",
		}, []string{"result"}),
		CheckoutPreviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "previews_total",
			Help:      "Checkout previews by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.StockRecomputes, m.CouponRedemptions, m.CheckoutPreviews)
	return m
}

func (m *Metrics) ObserveRequest(handler, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, status).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

// Recompute outcomes.
const (
	RecomputeChanged   = "changed"
	RecomputeUnchanged = "unchanged"
	RecomputeSkipped   = "skipped"
	RecomputeFailed    = "failed"
)

func (m *Metrics) ObserveRecompute(outcome string) {
	if m == nil {
		return
	}
	m.StockRecomputes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRedemption(result string) {
	if m == nil {
		return
	}
	m.CouponRedemptions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePreview(result string) {
	if m == nil {
		return
	}
	m.CheckoutPreviews.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
