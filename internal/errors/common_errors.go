package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeNotFound                ErrorType = "NOT_FOUND"
	ErrTypeDecode                  ErrorType = "DECODE"
	ErrTypeMalformedFormat         ErrorType = "MALFORMED_FORMAT"
	ErrTypeInconsistentSampleCount ErrorType = "INCONSISTENT_SAMPLE_COUNT"
	ErrTypeTableShape              ErrorType = "TABLE_SHAPE"
	ErrTypeIncompatibleSchema      ErrorType = "INCOMPATIBLE_SCHEMA"
	ErrTypeWrite                   ErrorType = "WRITE"
	ErrTypeValidation              ErrorType = "VALIDATION"
	ErrTypeConfig                  ErrorType = "CONFIG"
)

// Sentinels for errors.Is. An *AppError matches the sentinel of its Type.
var (
	ErrNotFound                = errors.New("not found")
	ErrDecode                  = errors.New("invalid text encoding")
	ErrMalformedFormat         = errors.New("malformed export format")
	ErrInconsistentSampleCount = errors.New("inconsistent sample count")
	ErrTableShape              = errors.New("table shape mismatch")
	ErrIncompatibleSchema      = errors.New("incompatible schema")
	ErrWrite                   = errors.New("write failed")
	ErrValidation              = errors.New("validation failed")
	ErrConfig                  = errors.New("configuration error")
)

var sentinels = map[ErrorType]error{
	ErrTypeNotFound:                ErrNotFound,
	ErrTypeDecode:                  ErrDecode,
	ErrTypeMalformedFormat:         ErrMalformedFormat,
	ErrTypeInconsistentSampleCount: ErrInconsistentSampleCount,
	ErrTypeTableShape:              ErrTableShape,
	ErrTypeIncompatibleSchema:      ErrIncompatibleSchema,
	ErrTypeWrite:                   ErrWrite,
	ErrTypeValidation:              ErrValidation,
	ErrTypeConfig:                  ErrConfig,
}

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's type.
func (e *AppError) Is(target error) bool {
	s, ok := sentinels[e.Type]
	return ok && s == target
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Helper functions for common error types

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, cause error) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), cause)
}

// NewDecodeError creates an encoding error
func NewDecodeError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDecode, message, cause)
}

// NewMalformedFormatError creates an error for files that are not a recognizable export
func NewMalformedFormatError(message string) *AppError {
	return NewAppError(ErrTypeMalformedFormat, message, nil)
}

// NewInconsistentSampleCountError creates a sample count error
func NewInconsistentSampleCountError(message string) *AppError {
	return NewAppError(ErrTypeInconsistentSampleCount, message, nil)
}

// NewTableShapeError creates a table shape error
func NewTableShapeError(message string) *AppError {
	return NewAppError(ErrTypeTableShape, message, nil)
}

// NewIncompatibleSchemaError creates a merge/update compatibility error
func NewIncompatibleSchemaError(message string) *AppError {
	return NewAppError(ErrTypeIncompatibleSchema, message, nil)
}

// NewWriteError creates a write error
func NewWriteError(message string, cause error) *AppError {
	return NewAppError(ErrTypeWrite, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
