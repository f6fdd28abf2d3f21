// Package errors provides the application error taxonomy and the
// process-wide error aggregation sink. Every operation failure is
// classified by type and severity; the severity governs how long the
// error stays visible and the retry flag governs whether the aggregator
// tracks retry eligibility.
package errors

import (
	"errors"
	"fmt"
)

// Type categorizes a failed operation.
type Type string

const (
	TypeNetwork    Type = "network"
	TypeValidation Type = "validation"
	TypeSystem     Type = "system"
	TypeAuth       Type = "auth"
)

// Severity governs error lifetime and logging. Critical errors persist
// until explicitly dismissed; all others expire after the display window.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrNotFound signals a lookup miss. Stored drafts that fail structural
// validation on read are reported as not found rather than returned.
var ErrNotFound = errors.New("not found")

// AppError is the typed error raised by services that must surface
// failures to their callers.
type AppError struct {
	Type      Type
	Severity  Severity
	Operation string
	Message   string
	Retryable bool
	Cause     error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidation creates a validation error. Validation failures are always
// recovered locally: the operation is refused, never silently applied.
func NewValidation(operation, message string) error {
	return &AppError{
		Type:      TypeValidation,
		Severity:  SeverityLow,
		Operation: operation,
		Message:   message,
	}
}

// NewSystem creates a system/storage error.
func NewSystem(operation, message string, cause error) error {
	return &AppError{
		Type:      TypeSystem,
		Severity:  SeverityMedium,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewNetwork creates a retryable network error.
func NewNetwork(operation, message string, cause error) error {
	return &AppError{
		Type:      TypeNetwork,
		Severity:  SeverityMedium,
		Operation: operation,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewAuth creates an authentication error.
func NewAuth(operation, message string) error {
	return &AppError{
		Type:      TypeAuth,
		Severity:  SeverityHigh,
		Operation: operation,
		Message:   message,
	}
}

// Wrap adds operation context to an error, preserving an existing
// AppError's classification.
func Wrap(err error, operation, message string) error {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return &AppError{
			Type:      app.Type,
			Severity:  app.Severity,
			Operation: operation,
			Message:   fmt.Sprintf("%s: %s", message, app.Message),
			Retryable: app.Retryable,
			Cause:     err,
		}
	}
	return &AppError{
		Type:      TypeSystem,
		Severity:  SeverityMedium,
		Operation: operation,
		Message:   message,
		Cause:     err,
	}
}

// IsType reports whether err carries the given error type.
func IsType(err error, t Type) bool {
	var app *AppError
	return errors.As(err, &app) && app.Type == t
}

func IsValidation(err error) bool { return IsType(err, TypeValidation) }
func IsSystem(err error) bool     { return IsType(err, TypeSystem) }
func IsNetwork(err error) bool    { return IsType(err, TypeNetwork) }
func IsAuth(err error) bool       { return IsType(err, TypeAuth) }

// IsNotFound reports whether err signals a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetSeverity returns the severity of an error, defaulting to medium for
// unclassified errors.
func GetSeverity(err error) Severity {
	var app *AppError
	if errors.As(err, &app) {
		return app.Severity
	}
	return SeverityMedium
}
