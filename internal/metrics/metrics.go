package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vlink_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vlink_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vlink_http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// LinksCreated counts newly stored links by kind (generated or custom).
	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vlink_links_created_total",
			Help: "Links created, by kind",
		},
		[]string{"kind"},
	)

	// Redirects counts redirect outcomes (hit, miss, error).
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vlink_redirects_total",
			Help: "Redirect lookups, by result",
		},
		[]string{"result"},
	)

	// VisitWrites counts asynchronous visit writes by outcome (written, failed, dropped).
	VisitWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vlink_visit_writes_total",
			Help: "Asynchronous visit writes, by outcome",
		},
		[]string{"outcome"},
	)

	// QREncodes counts QR symbols produced, by error correction level.
	QREncodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vlink_qr_encodes_total",
			Help: "QR symbols encoded, by error correction level",
		},
		[]string{"level"},
	)
)

// Middleware records request count, latency and in-flight requests.
// Labels use the matched route template to keep cardinality low.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
