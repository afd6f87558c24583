// ABOUTME: Prometheus collectors for the admin UI and the mock API.
// ABOUTME: Owns a private registry served at /metrics; all recorders are nil-safe.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "basiclist"

// Collector wraps the Prometheus metrics of one process.
type Collector struct {
	registry *prometheus.Registry

	Dispatches      *prometheus.CounterVec
	APIDuration     *prometheus.HistogramVec
	SupersededReads *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
}

// New creates a Collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Actions handled by screen dispatchers",
		}, []string{"verb", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of requests from the UI to the remote API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		SupersededReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_reads_total",
			Help:      "Read results dropped because a newer read was issued",
		}, []string{"screen"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served, by route pattern",
		}, []string{"method", "route", "status_code"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Browser sessions currently holding screens",
		}),
	}
	reg.MustRegister(c.Dispatches, c.APIDuration, c.SupersededReads, c.HTTPRequests, c.ActiveSessions)
	return c
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordDispatch counts one dispatched verb.
func (c *Collector) RecordDispatch(verb, outcome string) {
	if c == nil {
		return
	}
	c.Dispatches.WithLabelValues(verb, outcome).Inc()
}

// RecordAPIRequest observes one client round trip. status 0 means transport failure.
func (c *Collector) RecordAPIRequest(method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.APIDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordSupersededRead counts a dropped read result.
func (c *Collector) RecordSupersededRead(screen string) {
	if c == nil {
		return
	}
	c.SupersededReads.WithLabelValues(screen).Inc()
}

// RecordHTTPRequest counts one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// SetActiveSessions sets the session gauge.
func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

// Middleware counts requests by chi route pattern once the handler has run.
func (c *Collector) Middleware(routePattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			route := r.URL.Path
			if routePattern != nil {
				if p := routePattern(r); p != "" {
					route = p
				}
			}
			c.RecordHTTPRequest(r.Method, route, rec.status)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
