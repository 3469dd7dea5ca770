package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pilahub/queue-backend/internal/adapters/primary/http/middleware"
)

// Metrics holds the Prometheus collectors for the queue service.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	ticketsIssued prometheus.Counter
	ticketsServed prometheus.Counter
	queueResets   prometheus.Counter
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pilahub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests, labeled by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pilahub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ticketsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pilahub",
			Subsystem: "queue",
			Name:      "tickets_issued_total",
			Help:      "Tickets handed out since process start",
		}),
		ticketsServed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pilahub",
			Subsystem: "queue",
			Name:      "tickets_served_total",
			Help:      "Tickets moved to done since process start",
		}),
		queueResets: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pilahub",
			Subsystem: "queue",
			Name:      "resets_total",
			Help:      "Confirmed queue resets since process start",
		}),
	}
}

// RegisterClientGauge exposes the live WebSocket connection count. The
// callback is sampled at scrape time.
func RegisterClientGauge(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pilahub",
		Subsystem: "websocket",
		Name:      "connected_clients",
		Help:      "Currently connected WebSocket clients",
	}, func() float64 {
		return float64(count())
	})
}

// TicketIssued records a ticket being handed out.
func (m *Metrics) TicketIssued() { m.ticketsIssued.Inc() }

// TicketServed records a ticket reaching done.
func (m *Metrics) TicketServed() { m.ticketsServed.Inc() }

// QueueReset records a confirmed reset.
func (m *Metrics) QueueReset() { m.queueResets.Inc() }

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments every request with a count and a duration sample.
// The chi route pattern keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
