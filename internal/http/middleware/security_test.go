package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func securedRouter(opt SecurityOptions, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/health", ok)
	r.GET("/api/v1/feedback/:id", ok)
	r.GET("/api/v1/admin/stats", ok)
	return r
}

func get(r http.Handler, path string, mod func(*http.Request)) http.Header {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mod != nil {
		mod(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := get(securedRouter(SecurityOptions{}), "/health", nil)
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
	assert.Empty(t, h.Get("Permissions-Policy"))
	assert.Empty(t, h.Get("Cache-Control"))
	assert.Empty(t, h.Get("Strict-Transport-Security"))
	assert.Empty(t, h.Get("Access-Control-Expose-Headers"))
}

func TestSecurityHeaders_Policy(t *testing.T) {
	h := get(securedRouter(SecurityOptions{EnablePolicy: true}), "/health", nil)
	assert.Contains(t, h.Get("Permissions-Policy"), "geolocation=()")
	assert.Equal(t, "none", h.Get("X-Permitted-Cross-Domain-Policies"))
}

func TestSecurityHeaders_NoStoreByPrefix(t *testing.T) {
	r := securedRouter(SecurityOptions{NoStorePrefixes: []string{" /api/v1/feedback", "/api/v1/admin", ""}})

	for _, p := range []string{"/api/v1/feedback/3F9A2C1B", "/api/v1/admin/stats"} {
		h := get(r, p, nil)
		assert.Equal(t, "no-store", h.Get("Cache-Control"), p)
		assert.Equal(t, "no-cache", h.Get("Pragma"), p)
		assert.Equal(t, "0", h.Get("Expires"), p)
	}
	assert.Empty(t, get(r, "/health", nil).Get("Cache-Control"), "empty prefix must not match everything")
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	r := securedRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: 365 * 24 * time.Hour})

	assert.Empty(t, get(r, "/health", nil).Get("Strict-Transport-Security"), "plain HTTP")

	h := get(r, "/health", func(req *http.Request) { req.Header.Set("X-Forwarded-Proto", "HTTPS") })
	assert.Equal(t, "max-age=31536000; includeSubDomains; preload", h.Get("Strict-Transport-Security"))

	h = get(r, "/health", func(req *http.Request) { req.TLS = &tls.ConnectionState{} })
	assert.NotEmpty(t, h.Get("Strict-Transport-Security"))

	h = get(securedRouter(SecurityOptions{EnableHSTS: true}), "/health", func(req *http.Request) { req.TLS = &tls.ConnectionState{} })
	assert.Equal(t, "max-age=15552000; includeSubDomains; preload", h.Get("Strict-Transport-Security"), "180 day default")
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	withRID := func(c *gin.Context) { c.Header(requestIDHeader, "rid-1"); c.Next() }
	h := get(securedRouter(SecurityOptions{}, withRID), "/health", nil)
	assert.Equal(t, requestIDHeader, h.Get("Access-Control-Expose-Headers"))

	preset := func(c *gin.Context) {
		c.Header(requestIDHeader, "rid-2")
		c.Header("Access-Control-Expose-Headers", "ETag")
		c.Next()
	}
	h = get(securedRouter(SecurityOptions{}, preset), "/health", nil)
	assert.Equal(t, "ETag, X-Request-ID", h.Get("Access-Control-Expose-Headers"))

	already := func(c *gin.Context) {
		c.Header(requestIDHeader, "rid-3")
		c.Header("Access-Control-Expose-Headers", "x-request-id")
		c.Next()
	}
	h = get(securedRouter(SecurityOptions{}, already), "/health", nil)
	assert.Equal(t, "x-request-id", h.Get("Access-Control-Expose-Headers"))
}
