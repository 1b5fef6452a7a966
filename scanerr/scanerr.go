// Package scanerr provides structured error types for the scan core.
//
// Errors fall into two classes. Architecture violations indicate internally
// inconsistent configuration or strategy logic (an un-ledgered operation
// queried, a frozen ledger mutated, a duplicate plan entry, a breached scan
// deadline) and always terminate the scan. Operational failures are
// per-operation problems (non-zero exit, timeout, unparseable output) that
// are recorded and reported while the scan continues.
package scanerr

import (
	"errors"
	"fmt"
	"strings"
)

// Class categorizes an error by its consequence for the running scan.
type Class string

const (
	// ClassViolation marks fatal architecture violations. They propagate out
	// of the orchestration loop and stop the scan.
	ClassViolation Class = "violation"

	// ClassOperational marks recoverable per-operation failures. They become
	// execution records and the scan continues.
	ClassOperational Class = "operational"
)

// Standard error codes used across the scan core.
const (
	// ErrCodeUnledgeredOperation indicates a query for an operation absent
	// from the frozen ledger.
	ErrCodeUnledgeredOperation = "UNLEDGERED_OPERATION"

	// ErrCodeLedgerFrozen indicates a mutation attempt on a frozen ledger.
	ErrCodeLedgerFrozen = "LEDGER_FROZEN"

	// ErrCodeDuplicateOperation indicates a plan containing the same
	// operation twice.
	ErrCodeDuplicateOperation = "DUPLICATE_OPERATION"

	// ErrCodeGraphFinalized indicates a mutation attempt on a finalized
	// evidence graph.
	ErrCodeGraphFinalized = "GRAPH_FINALIZED"

	// ErrCodeForeignOperation indicates a plan entry outside the active
	// strategy's category.
	ErrCodeForeignOperation = "FOREIGN_OPERATION"

	// ErrCodeDeadlineExceeded indicates the global scan deadline was breached.
	ErrCodeDeadlineExceeded = "DEADLINE_EXCEEDED"

	// ErrCodeInterrupted indicates a user-requested interruption.
	ErrCodeInterrupted = "INTERRUPTED"

	// ErrCodeBinaryNotFound indicates a required scanner binary is not in PATH.
	ErrCodeBinaryNotFound = "BINARY_NOT_FOUND"

	// ErrCodeExecutionFailed indicates command execution failed.
	ErrCodeExecutionFailed = "EXECUTION_FAILED"

	// ErrCodeTimeout indicates a per-operation timeout.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeExtractionFailed indicates evidence extraction failed on
	// malformed output.
	ErrCodeExtractionFailed = "EXTRACTION_FAILED"

	// ErrCodeInvalidInput indicates invalid input parameters.
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Sentinel errors for the architecture violations. Violations constructed
// with the helpers below wrap the matching sentinel so callers can use
// errors.Is without inspecting codes.
var (
	ErrUnledgeredOperation = errors.New("operation not present in ledger")
	ErrLedgerFrozen        = errors.New("ledger is frozen")
	ErrDuplicateOperation  = errors.New("duplicate operation in plan")
	ErrGraphFinalized      = errors.New("evidence graph is finalized")
	ErrForeignOperation    = errors.New("operation outside strategy category")
	ErrDeadlineExceeded    = errors.New("global scan deadline exceeded")
	ErrInterrupted         = errors.New("scan interrupted")
)

// Error is the structured error type for scan operations.
// It records which operation and stage failed, carries a standard code,
// classifies the error by consequence, and can wrap an underlying cause.
type Error struct {
	// Op is the operation id or component that failed (e.g., "xss_scan",
	// "ledger.Allows").
	Op string

	// Code is one of the ErrCode constants.
	Code string

	// Class is the consequence class of the error.
	Class Class

	// Message is a human-readable description.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a new structured scan error.
func New(op, code string, class Class, message string) *Error {
	return &Error{
		Op:      op,
		Code:    code,
		Class:   class,
		Message: message,
	}
}

// Violation creates an architecture-violation error wrapping the given
// sentinel so it matches with errors.Is.
func Violation(op, code, message string, sentinel error) *Error {
	return &Error{
		Op:      op,
		Code:    code,
		Class:   ClassViolation,
		Message: message,
		Cause:   sentinel,
	}
}

// Operational creates a recoverable per-operation error.
func Operational(op, code, message string) *Error {
	return New(op, code, ClassOperational, message)
}

// WithCause adds an underlying error and returns the same instance for
// chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails adds additional context and returns the same instance for
// chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Error implements the error interface.
// Format: "op [class/code]: message: cause".
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s [%s/%s]", e.Op, e.Class, e.Code))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause so errors.Is and errors.As work with
// wrapped errors.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error equality for errors.Is. Two Errors match when their
// Op and Code agree; an Error also matches its wrapped sentinel.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Op == t.Op && e.Code == t.Code
	}
	return errors.Is(e.Cause, target)
}

// IsViolation reports whether err is (or wraps) an architecture violation.
func IsViolation(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Class == ClassViolation
	}
	return false
}

// IsOperational reports whether err is (or wraps) an operational failure.
func IsOperational(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Class == ClassOperational
	}
	return false
}
