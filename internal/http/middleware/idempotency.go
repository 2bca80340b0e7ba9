// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the transport half of safe submission retries. A
// citizen app on a flaky connection resends POST /feedback with the same
// Idempotency-Key; the middleware validates the key, checks the store through
// a narrow IdempotencyLookup, and flags the request so the handler returns
// the original submission instead of filing a duplicate ticket. Persisting
// the key is the service's job.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
//
// The value is expected to be stable for a given semantic operation so that
// retries (network, client, or server initiated) can be safely deduplicated.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
// These keys are intentionally unexported and referenced via accessor helpers.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
	ctxKeyUserID     = "userID"      // string: authenticated caller, if any
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
//
// Handlers should prefer this function over reading the header directly.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the middleware detected that this request would
// replay a previously completed operation (same key within the same scope).
//
// When true, upstream components (e.g., handlers, rate limiters) may choose to
// short-circuit computation and return the previously persisted result.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation behavior for
// IdempotencyValidator. TTL enforcement is intentionally out of scope here and
// should be implemented inside the provided lookup function.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, defaultKeyPattern is used.
	Pattern *regexp.Regexp
	// Methods the header is honored on. Empty means POST only; other methods
	// ignore the header entirely.
	Methods []string
}

// defaultKeyPattern accepts token characters plus the separators UUIDs and
// ULIDs use.
var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyLookup answers whether a successful, still-valid result exists for
// (scope, key) at the given time. Implementations typically consult a
// database record containing the previous response metadata and TTL window.
//
// Return exists=true when the prior response can be replayed; return an error
// only for lookup failures (which should not block normal processing).
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyScope derives the namespace an Idempotency-Key is unique within:
// the route (method + registered path) and the caller identity. Handlers pass
// the same value to the service when they persist the key, so the middleware
// lookup and the write always agree.
func IdempotencyScope(c *gin.Context) string {
	return c.Request.Method + " " + routePath(c) + "|" + callerID(c)
}

// IdempotencyValidator validates the Idempotency-Key header on the configured
// methods, stashes the key, and asks lookup whether the submission was
// already stored. A hit marks the request as a replay and lets it through the
// rate limiter without spending a token; the handler then answers with the
// stored row.
//
// A malformed key is rejected with 400 bad_idempotency_key. Lookup failures
// are logged and treated as misses so a store hiccup never blocks a citizen
// from submitting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	methods := opts.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodPost}
	}
	applies := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		applies[strings.ToUpper(m)] = struct{}{}
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if _, ok := applies[c.Request.Method]; !ok || key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": requestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			exists, err := lookup(c.Request.Context(), IdempotencyScope(c), key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case exists:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
