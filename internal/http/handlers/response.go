// Package handlers provides HTTP handler implementations for the public API.
//
// This file owns the response envelope. Every error leaves through fail (or
// failService, which first classifies a service error), so clients can
// branch on a stable `code` and quote `request_id` when they call the help
// desk:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "feedback not found"
//	}
//
// Success bodies are the resource itself, with no wrapper.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/http/middleware"
	"github.com/tbourn/citizen-feedback/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"feedback not found"`
}

// fail aborts with an ErrorResponse. 5xx results are logged with the
// request-scoped logger; 4xx already show up in the access log.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// errorMapping ties a sentinel to the response it produces.
type errorMapping struct {
	target error
	status int
	code   string
	// message overrides err.Error() when set.
	message string
}

// serviceErrors is checked in order with errors.Is. The first match wins.
var serviceErrors = []errorMapping{
	{services.ErrFeedbackNotFound, http.StatusNotFound, ErrCodeNotFound, "feedback not found"},
	{services.ErrTooLong, http.StatusBadRequest, ErrCodeTooLong, ""},
	{services.ErrInvalidFeedback, http.StatusBadRequest, ErrCodeBadRequest, ""},
	{services.ErrInvalidStatus, http.StatusBadRequest, ErrCodeInvalidStatus, ""},
	{services.ErrInvalidPriority, http.StatusBadRequest, ErrCodeInvalidPriority, ""},
	{services.ErrEmptyUpdate, http.StatusBadRequest, ErrCodeEmptyUpdate, ""},
	{analytics.ErrUnknownPeriod, http.StatusBadRequest, ErrCodeInvalidPeriod, ""},
	{analytics.ErrInvalidConfig, http.StatusBadRequest, ErrCodeInvalidConfig, ""},
}

// classify returns the status, code and message for err. Unrecognized errors
// are a 500 carrying fallbackCode.
func classify(err error, fallbackCode string) (int, string, string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, m.code, msg
		}
	}
	return http.StatusInternalServerError, fallbackCode, err.Error()
}

// failService writes the envelope for a service or engine error.
func failService(c *gin.Context, err error, fallbackCode string) {
	status, code, msg := classify(err, fallbackCode)
	fail(c, status, code, msg)
}

// ok writes body as JSON with status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes 204 with no body.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
