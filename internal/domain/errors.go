package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrTimesheetNotFound    = errors.New("timesheet not found")
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrLeaveBalanceNotFound = errors.New("leave balance not found")
	ErrAlreadyExists        = errors.New("resource already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("concurrent modification detected")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrUpstreamUnavailable  = errors.New("upstream service unavailable")
	ErrAttachmentOverlap    = errors.New("attachment date range overlaps an existing attachment")
	ErrInternalError        = errors.New("internal error")
)

// Validation constants
const (
	MaxNotesLength = 500
)

// FieldError describes a single invalid field in a request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field-level problems so a caller can fix an entire
// request in one round trip instead of being fed one error at a time.
type ValidationErrors struct {
	Fields []FieldError
}

// Add records a field-level problem.
func (v *ValidationErrors) Add(field, format string, args ...any) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any problem was recorded.
func (v *ValidationErrors) HasErrors() bool { return len(v.Fields) > 0 }

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match collected validation errors.
func (v *ValidationErrors) Unwrap() error { return ErrInvalidInput }

// OutOfRangeEntryError is returned when a submitted entry's date falls outside
// the owning week's [start, end] window.
type OutOfRangeEntryError struct {
	Date      string
	WeekStart string
	WeekEnd   string
}

// Error implements the error interface.
func (e *OutOfRangeEntryError) Error() string {
	return fmt.Sprintf("entry date %s is outside the week range %s to %s", e.Date, e.WeekStart, e.WeekEnd)
}

// Unwrap maps out-of-range entries onto the generic validation error.
func (e *OutOfRangeEntryError) Unwrap() error { return ErrInvalidInput }
