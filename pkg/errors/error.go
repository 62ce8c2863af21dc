// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99)
//   - Validation errors (100-199): parameters, stop-loss, timeframes, date ranges
//   - Data errors (200-299): empty or corrupt bar series, data source failures
//   - Indicator errors (300-399): registry lookups and warm-up windows
//   - Strategy errors (400-499): unknown variants and variants that cannot be simulated
//   - Simulation errors (500-599)
//   - Backtest errors (600-699): engine lifecycle and result writing
//   - Market data errors (700-799): provider downloads and partition writes
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeInvalidTimeframe, "invalid timeframe: %s", tf)
//
//	if errors.HasCode(err, errors.ErrCodeEmptySeries) {
//		// report "no data" and skip
//	}
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps cause with a new Error carrying code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps cause with a new Error carrying code and a formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode of the outermost *Error in err's chain.
// Returns ErrCodeUnknown if there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	if IsInsufficientDataError(err) {
		return ErrCodeInsufficientData
	}

	return ErrCodeUnknown
}

// HasCode checks whether any *Error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return code == ErrCodeInsufficientData && IsInsufficientDataError(err)
		}

		if e.Code == code {
			return true
		}

		err = e.Cause
	}

	return false
}

// InsufficientDataError is returned when a rolling computation has fewer
// bars than its window needs.
type InsufficientDataError struct {
	Required int    // Minimum data points required
	Actual   int    // Actual data points available
	Symbol   string // Optional: symbol context
	Message  string
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
