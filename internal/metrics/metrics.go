package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studio"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created.",
		},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Booking attempts rejected, by reason.",
		},
		[]string{"reason"},
	)

	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created, by source (cart, instant, checkout).",
		},
		[]string{"source"},
	)

	checkoutVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_verifications_total",
			Help:      "Checkout verifications, by result (new, replayed, unpaid).",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookingsCreated, bookingRejections,
			ordersCreated, checkoutVerifications)
	})
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// IncBookingCreated counts a successful booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingRejected counts a rejected booking attempt.
func IncBookingRejected(reason string) {
	bookingRejections.WithLabelValues(reason).Inc()
}

// IncOrderCreated counts a new order.
func IncOrderCreated(source string) {
	ordersCreated.WithLabelValues(source).Inc()
}

// IncCheckoutVerification counts a checkout verification outcome.
func IncCheckoutVerification(result string) {
	checkoutVerifications.WithLabelValues(result).Inc()
}
