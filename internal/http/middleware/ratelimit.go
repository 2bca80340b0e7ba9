// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter, one bucket
// per caller (operator identity or client IP). Its job is to keep a single
// script from flooding the submission queue or hammering the analytics
// endpoints; it is not an authorization mechanism. Replays of an already
// stored submission (flagged by IdempotencyValidator) pass without spending
// a token, so a citizen retrying on a bad connection is never locked out.
//
// Buckets idle for longer than the TTL are swept at most once per sweep
// interval. Horizontally scaled deployments need a shared limiter in front.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	defaultBucketTTL   = 10 * time.Minute
	defaultSweepEvery  = time.Minute
	noRefillRetryAfter = 60 // seconds, when the limiter never refills
)

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "rate_limited_total",
		Help:      "Requests rejected with 429, by audience.",
	},
	[]string{"audience"},
)

func init() {
	prometheus.MustRegister(rateLimited)
}

// keyFunc selects the bucket a request draws from.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by callerID: "user:<id>" once an identity is
// set, "ip:<addr>" otherwise.
func KeyByUserOrIP() keyFunc {
	return callerID
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	keyFn keyFunc
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	ttl       time.Duration
	lastSweep time.Time
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1). rps == 0 means a caller gets burst
// requests and no more.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = callerID
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		ttl:     defaultBucketTTL,
	}
}

// limiterFor returns the bucket for key, creating it when absent. The sweep
// runs first so a stale bucket is dropped rather than revived.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= defaultSweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// size reports the number of live buckets.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay that skips limiting.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// retryAfter converts a wait into whole seconds for the Retry-After header.
func retryAfter(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Handler returns the middleware. A rejected request gets
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: <seconds until a token is available>
//	{ "request_id": "...", "code": "rate_limited", "message": "rate limit exceeded" }
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		lim := rl.limiterFor(rl.keyFn(c), now)
		res := lim.ReserveN(now, 1)
		wait := res.DelayFrom(now)
		if res.OK() && wait == 0 {
			c.Next()
			return
		}

		retry := strconv.Itoa(noRefillRetryAfter)
		if res.OK() {
			res.CancelAt(now)
			retry = retryAfter(wait)
		}
		rateLimited.WithLabelValues(audienceOf(c.Request.URL.Path)).Inc()
		c.Header("Retry-After", retry)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": requestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
