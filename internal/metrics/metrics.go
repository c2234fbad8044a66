// Package metrics expose les compteurs Prometheus du tunnel de paiement.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cedra_checkout/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cedra"

type ServerMetrics struct {
	Requests           *prometheus.CounterVec
	LatencyMS          *prometheus.HistogramVec
	CheckoutInitiated  *prometheus.CounterVec
	PaymentCallbacks   *prometheus.CounterVec
	OrdersMaterialized prometheus.Counter
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		CheckoutInitiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "initiated_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		PaymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "callbacks_total",
			Help:      "Gateway callbacks by entry point and outcome.",
		}, []string{"entry", "outcome"}),
		OrdersMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "materialized_total",
			Help:      "Orders created from successful payments.",
		}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.CheckoutInitiated, m.PaymentCallbacks, m.OrdersMaterialized)
	return m
}

// Middleware mesure chaque requête sous le nom de sa route gin
func (m *ServerMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (m *ServerMetrics) Checkout(result string) {
	m.CheckoutInitiated.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) Callback(entry, outcome string) {
	m.PaymentCallbacks.WithLabelValues(entry, outcome).Inc()
}

func (m *ServerMetrics) Name() string { return "metrics" }

func (m *ServerMetrics) OnOrderMaterialized(context.Context, reconcile.OrderEvent) error {
	m.OrdersMaterialized.Inc()
	return nil
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
