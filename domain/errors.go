package domain

import (
	"errors"
	"fmt"
)

// DomainError represents errors in the domain layer
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e DomainError) Unwrap() error {
	return e.Cause
}

// Domain error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeEmptyInput        = "EMPTY_INPUT"
	ErrCodeOracleError       = "ORACLE_ERROR"
	ErrCodeStorageError      = "STORAGE_ERROR"
	ErrCodeClusterError      = "CLUSTER_ERROR"
	ErrCodeConfigError       = "CONFIG_ERROR"
	ErrCodeOutputError       = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// EmptyInputError is returned when a collection that must contain at least
// one assembly turns out to be empty.
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	if e.Source == "" {
		return "no assemblies found"
	}
	return fmt.Sprintf("no assemblies found in %s", e.Source)
}

// NewEmptyInputError creates an empty input error for the given source
func NewEmptyInputError(source string) error {
	return &EmptyInputError{Source: source}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), cause)
}

// NewOracleError creates an error describing a failed pairwise comparison
func NewOracleError(a, b string, cause error) error {
	return NewDomainError(ErrCodeOracleError, fmt.Sprintf("comparison failed for %s and %s", a, b), cause)
}

// NewStorageError creates a result store error
func NewStorageError(message string, cause error) error {
	return NewDomainError(ErrCodeStorageError, message, cause)
}

// NewClusterError creates a clustering error
func NewClusterError(message string, cause error) error {
	return NewDomainError(ErrCodeClusterError, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeConfigError, message, cause)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported format: %s", format), nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, nil)
}

// HasCode reports whether err wraps a DomainError with the given code
func HasCode(err error, code string) bool {
	var de DomainError
	return errors.As(err, &de) && de.Code == code
}
