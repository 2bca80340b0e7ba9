// Package services defines the business logic for citizen feedback intake,
// admin workflow and analytics. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Feedback-related errors.
var (
	// ErrFeedbackNotFound indicates that no feedback exists for the tracking ID.
	ErrFeedbackNotFound = errors.New("feedback not found")

	// ErrInvalidFeedback is returned when a submission is missing its text or
	// carries out-of-range coordinates.
	ErrInvalidFeedback = errors.New("invalid feedback")

	// ErrTooLong is returned when the feedback text exceeds the configured limit.
	ErrTooLong = errors.New("feedback text too long")

	// ErrInvalidStatus is returned when an update names an unknown status.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPriority is returned when an update names an unknown priority.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrEmptyUpdate is returned when an update changes nothing.
	ErrEmptyUpdate = errors.New("nothing to update")

	// ErrIDExhausted is returned when no free tracking ID could be generated.
	ErrIDExhausted = errors.New("could not allocate tracking id")
)
