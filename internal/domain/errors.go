package domain

import "errors"

// Sentinel errors shared by services and delivery layers. Callers match them with errors.Is.
var (
	// ErrUnauthenticated is returned when an operation requires a subject and none was supplied.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the subject is known but not permitted (e.g. a non-creator cancelling).
	ErrForbidden = errors.New("not authorized")
	// ErrNotFound is returned when a referenced event or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a request field is empty or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage wraps repository failures (connection loss, constraint violations, write conflicts).
	ErrStorage = errors.New("storage failure")
)
