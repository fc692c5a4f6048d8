// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrEmptyExpression  = errors.New("empty expression")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrRunInProgress    = errors.New("evaluation run already in progress")
	ErrDatabaseError    = errors.New("database error")
	ErrConnectionFailed = errors.New("connection failed")
)

// ParseError represents a malformed alert expression.
type ParseError struct {
	Expression string
	Message    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %q: %s", e.Expression, e.Message)
}

// NewParseError creates a new ParseError.
func NewParseError(expression, message string) *ParseError {
	return &ParseError{
		Expression: expression,
		Message:    message,
	}
}

// NewParseErrorf creates a new ParseError with a formatted message.
func NewParseErrorf(expression, format string, args ...interface{}) *ParseError {
	return NewParseError(expression, fmt.Sprintf(format, args...))
}

// DataUnavailableError reports that a market-data lookup failed or
// returned too little data for the requested value.
type DataUnavailableError struct {
	DataType string // "quote", "history", "ema", "rsi"
	Symbol   string
	Message  string
	Err      error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data unavailable [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data unavailable [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// NewDataUnavailableError creates a new DataUnavailableError.
func NewDataUnavailableError(dataType, symbol, message string, err error) *DataUnavailableError {
	return &DataUnavailableError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// EvaluationError represents a failure while resolving or evaluating an
// operand that is not a data-availability problem.
type EvaluationError struct {
	Operand string
	Message string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluation error [%s]: %s: %v", e.Operand, e.Message, e.Err)
	}
	return fmt.Sprintf("evaluation error [%s]: %s", e.Operand, e.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// NewEvaluationError creates a new EvaluationError.
func NewEvaluationError(operand, message string, err error) *EvaluationError {
	return &EvaluationError{
		Operand: operand,
		Message: message,
		Err:     err,
	}
}

// SendError represents a notification dispatch failure.
type SendError struct {
	Channel string
	Subject string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send error [%s] %q: %v", e.Channel, e.Subject, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// NewSendError creates a new SendError.
func NewSendError(channel, subject string, err error) *SendError {
	return &SendError{
		Channel: channel,
		Subject: subject,
		Err:     err,
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

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsDataUnavailable reports whether err is a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}
