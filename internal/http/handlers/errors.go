// Package handlers defines the error codes of the API.
//
// Codes are lowercase snake_case and never change once published; clients
// branch on them instead of parsing messages. Generic codes mirror an HTTP
// status, domain codes say which rule a request broke. A few codes are
// emitted by middleware before a handler runs and are listed here so the
// whole taxonomy lives in one place.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Written by middleware (AdminKey, RateLimiter, IdempotencyValidator).
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeBadIdempotencyKey = "bad_idempotency_key"

	// Submissions and the staff workflow.
	ErrCodeCreateFailed    = "create_failed"
	ErrCodeListFailed      = "list_failed"
	ErrCodeUpdateFailed    = "update_failed"
	ErrCodeDeleteFailed    = "delete_failed"
	ErrCodeTooLong         = "feedback_too_long"
	ErrCodeInvalidStatus   = "invalid_status"
	ErrCodeInvalidPriority = "invalid_priority"
	ErrCodeEmptyUpdate     = "empty_update"

	// Analytics.
	ErrCodeInvalidPeriod   = "invalid_period"
	ErrCodeInvalidConfig   = "invalid_config"
	ErrCodeAnalyticsFailed = "analytics_failed"
)
