// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file guards the staff endpoints with a static shared key carried in the
// X-Admin-Key header. An empty configured key disables the check, which keeps
// local development friction-free.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAdminKey is the request header carrying the staff API key.
const HeaderAdminKey = "X-Admin-Key"

// adminIdentity is stored under "userID" once the key checks out, so rate
// limiting, idempotency scopes and access logs see an authenticated caller.
const adminIdentity = "admin"

// AdminKey rejects requests whose X-Admin-Key does not match required with
// 401. When required is empty every request passes.
func AdminKey(required string) gin.HandlerFunc {
	want := []byte(required)
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(HeaderAdminKey))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "invalid admin key",
			})
			return
		}
		c.Set(ctxKeyUserID, adminIdentity)
		c.Next()
	}
}
