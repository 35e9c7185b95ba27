package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "resolveit"

type httpCollectors struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	uptime   prometheus.GaugeFunc
}

func newHTTPCollectors(started time.Time) *httpCollectors {
	return &httpCollectors{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status code.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		uptime: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started.",
		}, func() float64 { return time.Since(started).Seconds() }),
	}
}

var (
	collectors   = newHTTPCollectors(time.Now())
	registerOnce sync.Once
)

// RegisterMetrics registers the HTTP collectors with reg. Only the first call
// has any effect.
func RegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(collectors.requests, collectors.latency, collectors.inFlight, collectors.uptime)
	})
}

// normalizePath collapses ids and stored file names so label cardinality
// stays bounded.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "/uploads/") {
		return "/uploads/:file"
	}
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if len(seg) > 20 || (seg[0] >= '0' && seg[0] <= '9') {
			segments[i] = ":id"
		}
	}
	route := strings.Join(segments, "/")
	if len(route) > 100 {
		route = route[:100]
	}
	return route
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		collectors.inFlight.Inc()
		defer collectors.inFlight.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		route := normalizePath(r.URL.Path)
		status := strconv.Itoa(rw.statusCode)
		collectors.requests.WithLabelValues(r.Method, route, status).Inc()
		collectors.latency.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func GetMetricsHandler() http.Handler {
	return promhttp.Handler()
}
