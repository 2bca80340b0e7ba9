package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lastLine decodes the final JSON log line.
func lastLine(t *testing.T, raw string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	require.NotEmpty(t, lines)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m), raw)
	return m
}

func TestRedactingLogger_ScrubsContactDetails(t *testing.T) {
	buf := withCapturedLogger(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{HeaderAdminKey}}))
	r.GET("/admin/feedback/:id/similar", func(c *gin.Context) {
		c.Set(ctxKeyUserID, "admin")
		c.String(http.StatusOK, "ok")
	})

	q := "email=jane@example.com&phone=555-123-4567&q=call+555-987-6543+or+bob@example.org&k=5"
	req := httptest.NewRequest(http.MethodGet, "/admin/feedback/abcd1234/similar?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set(HeaderAdminKey, "s3cret")
	req.Header.Set("X-Note", "key 123e4567-e89b-12d3-a456-426614174000 from a@b.com")
	req.Header.Set(requestIDHeader, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	raw := buf.String()
	for _, leaked := range []string{"jane@example.com", "555-123-4567", "555-987-6543", "bob@example.org", "s3cret", "Bearer secret", "123e4567"} {
		assert.NotContains(t, raw, leaked)
	}

	m := lastLine(t, raw)
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "http_request", m["message"])
	assert.Equal(t, "rid-1", m["request_id"])
	assert.Equal(t, "/admin/feedback/:id/similar", m["path"])
	assert.Equal(t, "ABCD1234", m["feedback_id"])
	assert.Equal(t, "user:admin", m["caller"], "identity set downstream is logged")
	assert.Equal(t, "email=[REDACTED]&k=5&phone=[REDACTED]&q=call [REDACTED:phone] or [REDACTED:email]", m["query"])

	headers, ok := m["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", headers["Authorization"])
	assert.Equal(t, "[REDACTED]", headers[HeaderAdminKey])
	assert.Equal(t, "key [REDACTED:id] from [REDACTED:email]", headers["X-Note"])
}

func TestRedactingLogger_LevelsByOutcome(t *testing.T) {
	cases := []struct {
		name  string
		h     gin.HandlerFunc
		level string
	}{
		{"ok", func(c *gin.Context) { c.Status(http.StatusCreated) }, "info"},
		{"client error", func(c *gin.Context) { c.Status(http.StatusNotFound) }, "warn"},
		{"server error", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) }, "error"},
		{"gin error", func(c *gin.Context) {
			_ = c.Error(errors.New("webhook failed"))
			c.Status(http.StatusOK)
		}, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := withCapturedLogger(t)
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(RedactingLogger(RedactOptions{}))
			r.POST("/feedback", tc.h)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/feedback", nil))

			m := lastLine(t, buf.String())
			assert.Equal(t, tc.level, m["level"])
			assert.NotContains(t, m, "feedback_id")
		})
	}
}

func TestRedactingLogger_AttachesScopedLogger(t *testing.T) {
	buf := withCapturedLogger(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.POST("/feedback", func(c *gin.Context) {
		LoggerFrom(c).Info().Str("feedback_id", "3F9A2C1B").Msg("feedback submitted")
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/feedback", nil)
	req.Header.Set(requestIDHeader, "rid-scoped")
	r.ServeHTTP(httptest.NewRecorder(), req)

	first := strings.Split(strings.TrimSpace(buf.String()), "\n")[0]
	assert.Contains(t, first, `"message":"feedback submitted"`)
	assert.Contains(t, first, `"request_id":"rid-scoped"`)
	assert.Contains(t, first, `"path":"/feedback"`)
}

func TestRedactQuery(t *testing.T) {
	masked := lowerSet(contactParams, []string{"Token"})

	assert.Equal(t, "", redactQuery("", masked))
	assert.Equal(t, "LATITUDE=[REDACTED]&token=[REDACTED]", redactQuery("token=abc&LATITUDE=40.1", masked))
	assert.Equal(t, "page=2&page=1", redactQuery("page=2&page=1", masked), "repeated values keep their order")
	// Invalid escapes fall back to plain-text scrubbing.
	assert.Equal(t, "%zz [REDACTED:email]", redactQuery("%zz a@b.io", masked))
}

func TestScrub_UUIDBeforePhone(t *testing.T) {
	got := scrub("id 123e4567-e89b-12d3-a456-426614174000 tel 212-555-1212")
	assert.Equal(t, "id [REDACTED:id] tel [REDACTED:phone]", got)
}
