package entity

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a stable error category exposed to callers.
type ErrorKind string

const (
	KindDatabase      ErrorKind = "database_error"
	KindNetwork       ErrorKind = "network_error"
	KindAIService     ErrorKind = "ai_service_error"
	KindParsing       ErrorKind = "parsing_error"
	KindValidation    ErrorKind = "validation_error"
	KindConfiguration ErrorKind = "configuration_error"
)

// AppError is the tagged error carried across component boundaries.
type AppError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds a tagged error.
func NewAppError(kind ErrorKind, op, message string, err error) *AppError {
	return &AppError{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to database_error for plain errors
// surfaced from the store and validation for nil.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindDatabase
}
