// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access log. Citizen submissions
// carry contact details, so the log never sees them:
//
//   - request and response bodies are never read
//   - query parameters that name contact fields (email, phone, name, address,
//     location, latitude, longitude) are masked by name
//   - every other query value and header value is scrubbed for e-mail
//     addresses, phone numbers and UUIDs
//   - Authorization, Cookie, Set-Cookie and any configured header (the admin
//     key) are masked entirely
//
// RedactingLogger also installs the request-scoped logger returned by
// LoggerFrom. The access line is written after the handler ran, so it
// carries the caller identity set by AdminKey and the tracking ID of the
// submission the request addressed.
package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrubbing.
type RedactOptions struct {
	// MaskHeaders are replaced with "[REDACTED]" in addition to the built-in
	// Authorization, Cookie and Set-Cookie. Matching is case-insensitive.
	MaskHeaders []string
	// MaskParams are query parameters masked in addition to the contact fields.
	MaskParams []string
}

const redacted = "[REDACTED]"

var (
	builtinMaskHeaders = []string{"authorization", "cookie", "set-cookie"}
	contactParams      = []string{"name", "email", "phone", "address", "location", "latitude", "longitude"}

	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so the hex groups of a UUID never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// scrub replaces identifiers inside free-form text. UUIDs go first: the
// phone pattern is the loosest and would otherwise eat UUID digit groups.
func scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, v := range l {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				set[v] = struct{}{}
			}
		}
	}
	return set
}

// redactQuery masks named parameters and scrubs the rest. Keys are sorted so
// equal queries log identically; values stay unescaped for readability. An
// unparsable query is scrubbed as plain text.
func redactQuery(raw string, masked map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return truncate(scrub(raw), maxQueryLogLength)
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		_, mask := masked[strings.ToLower(k)]
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if mask {
				b.WriteString(redacted)
			} else {
				b.WriteString(scrub(v))
			}
		}
	}
	return truncate(b.String(), maxQueryLogLength)
}

func redactHeaders(h http.Header, masked map[string]struct{}) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := masked[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger returns the access-log middleware. Level follows the
// outcome: error for 5xx or collected Gin errors, warn for 4xx, info
// otherwise.
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{middleware.HeaderAdminKey},
//	}))
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet(builtinMaskHeaders, opts.MaskHeaders)
	maskParams := lowerSet(contactParams, opts.MaskParams)

	return func(c *gin.Context) {
		start := time.Now()

		l := log.With().
			Str("request_id", requestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", routePath(c)).
			Logger()
		c.Set(ctxKeyLogger, &l)

		query := redactQuery(c.Request.URL.RawQuery, maskParams)
		headers := redactHeaders(c.Request.Header, maskHeaders)

		c.Next()

		status := c.Writer.Status()
		lvl := zerolog.InfoLevel
		switch {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			lvl = zerolog.ErrorLevel
		case status >= http.StatusBadRequest:
			lvl = zerolog.WarnLevel
		}
		ev := l.WithLevel(lvl)
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		if id := c.Param("id"); id != "" {
			ev = ev.Str("feedback_id", strings.ToUpper(id))
		}
		ev.
			Str("caller", callerID(c)).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
