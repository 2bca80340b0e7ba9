// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic under the
// citizen_feedback_http namespace. Series carry:
//
//   - method:   HTTP verb
//   - route:    the registered Gin route (e.g. /api/v1/admin/feedback/:id),
//     or "unmatched" when no route matched, so scanners probing random URLs
//     cannot blow up cardinality
//   - audience: "citizen" for the public submission and tracking routes,
//     "staff" for /admin, "ops" for everything else (health, metrics, docs)
//   - status:   numeric status code (request counter only)
//
// The audience label lets one dashboard split citizen-facing latency from
// staff analytics, whose heavier aggregations would otherwise dominate the
// percentiles.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "citizen_feedback"
	metricsSubsystem = "http"

	audienceCitizen = "citizen"
	audienceStaff   = "staff"
	audienceOps     = "ops"

	unmatchedRoute = "unmatched"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_total",
			Help:      "HTTP requests by route, audience and status.",
		},
		[]string{"method", "route", "audience", "status"},
	)

	// Analytics endpoints recompute over the whole store, so the upper
	// buckets reach further than DefBuckets.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "audience"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_inflight",
			Help:      "HTTP requests currently being served.",
		},
		[]string{"audience"},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "response_size_bytes",
			Help:      "HTTP response body size before compression.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "route", "audience"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// audienceOf classifies a route. The raw URL path is used because the
// matched route is not known until after c.Next and the in-flight gauge
// needs the label up front.
func audienceOf(path string) string {
	switch {
	case strings.Contains(path, "/admin/") || strings.HasSuffix(path, "/admin"):
		return audienceStaff
	case strings.Contains(path, "/feedback"):
		return audienceCitizen
	default:
		return audienceOps
	}
}

// Metrics returns the Prometheus middleware. Mount /metrics separately:
//
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		aud := audienceOf(c.Request.URL.Path)
		inflight := httpInflight.WithLabelValues(aud)
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, route, aud, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route, aud).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route, aud).Observe(float64(size))
		}
	}
}
