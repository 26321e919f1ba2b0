// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNonConvergence         = errors.New("numerical solver did not converge")
	ErrDegenerateDistribution = errors.New("degenerate distribution")
	ErrConfigInvalid          = errors.New("invalid configuration")
	ErrProvider               = errors.New("data provider error")
	ErrDataNotFound           = errors.New("data not found")
)

// ValidationError represents a validation error. It always matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ConvergenceError reports a solver that exhausted its iteration budget.
type ConvergenceError struct {
	Solver     string
	Iterations int
	Estimate   float64
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: no convergence after %d iterations (estimate %.6f, residual %.3g)",
		e.Solver, e.Iterations, e.Estimate, e.Residual)
}

func (e *ConvergenceError) Unwrap() error {
	return ErrNonConvergence
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Asset    string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Asset, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Asset, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, asset, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Asset:    asset,
		Message:  message,
		Err:      err,
	}
}

// ProviderError represents a non-success response from the distribution provider.
type ProviderError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error [%s] HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error [%s]: %s", e.Endpoint, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return ErrProvider
}

// Retryable reports whether the request may succeed if repeated (5xx or 429).
func (e *ProviderError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// NewProviderError creates a new ProviderError.
func NewProviderError(endpoint string, statusCode int, message string) *ProviderError {
	return &ProviderError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
