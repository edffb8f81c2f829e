// Package domain defines core types, interfaces, and errors for the
// account permission classification subsystem.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// SchemaTypeError indicates a raw payload field has the wrong shape
// (e.g. a scalar where a mapping is required). Raised by the snapshot
// normalizer; never coerced.
type SchemaTypeError struct {
	Message string
}

func (e *SchemaTypeError) Error() string { return e.Message }

// SchemaVersionError indicates a payload carries a schema version other
// than the single supported one. Forward and backward coercion are both
// refused so a future or past schema is never misread as the current one.
type SchemaVersionError struct {
	Message string
}

func (e *SchemaVersionError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchemaType creates a SchemaTypeError with a formatted message.
func ErrSchemaType(format string, args ...interface{}) *SchemaTypeError {
	return &SchemaTypeError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchemaVersion creates a SchemaVersionError with a formatted message.
func ErrSchemaVersion(format string, args ...interface{}) *SchemaVersionError {
	return &SchemaVersionError{Message: fmt.Sprintf(format, args...)}
}
