// Package service holds the booking lifecycle controller: the rules that
// decide whether a booking may be created, rescheduled, cancelled or
// answered, sitting between the HTTP handlers and the repositories.
package service

import "errors"

// Sentinel errors classify every failure the booking engine can report.
// Callers wrap them with fmt.Errorf("%w: ...") to add a human-readable
// message and handlers map them onto HTTP statuses.
var (
	// ErrValidation marks malformed or missing input: bad dates, inverted
	// time ranges, unknown RSVP values.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing booking, resource or invitation.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a caller that is neither the owner nor an admin.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks an availability overlap or exceeded capacity.  The
	// caller may retry with different parameters.
	ErrConflict = errors.New("conflict")
)
