package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printdrop_uploads_total",
		Help: "Document uploads by outcome.",
	}, []string{"outcome"})

	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printdrop_orders_submitted_total",
		Help: "Orders persisted after successful submission.",
	})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printdrop_orders_rejected_total",
		Help: "Order submissions rejected before persistence.",
	}, []string{"reason"})

	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printdrop_order_status_changes_total",
		Help: "Admin status changes by target status.",
	}, []string{"status"})

	FileChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printdrop_order_file_checks_total",
		Help: "Background verification of order files by result.",
	}, []string{"result"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "printdrop_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status code.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route", "code"})
)

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
