// Package errs provides the unified error type used across all of dbmeta.
//
// Every subsystem (drivers, the metadata store, the cache, the condition AST)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver, classify native errors exactly once:
//	return errs.Classify(pgErr, sql, rules, info)
//
//	// In a caller, check the error kind:
//	if errs.IsUnsupported(err) {
//	    // the DBMS cannot enumerate schemas; this is not an empty result
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindNotFound                   // no rows, no table, no object
	ErrKindConnectionFailed           // cannot reach the backend
	ErrKindTimeout                    // context deadline / cancellation
	ErrKindQueryFailed                // SQL or storage operation error
	ErrKindInvalidInput               // bad arguments from the caller
	ErrKindPermissionDenied           // access denied / auth failure
	ErrKindUnsupported                // the DBMS cannot perform the operation
	ErrKindIntegrityViolation         // constraint violation (SQLSTATE class 23)
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindIntegrityViolation:
		return "integrity_violation"
	default:
		return "unknown"
	}
}

// DriverInfo is the structured error information a driver reported, when
// the driver exposes any. Fields the driver does not know stay empty.
type DriverInfo struct {
	SQLState string // five character SQLSTATE, e.g. "23505"
	Code     int    // vendor error number (MySQL 1062, SQL Server 2627, …)
	Message  string // the driver's message without decoration
}

// Error is the single error type returned by all dbmeta subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error       // original driver-level error, preserved for logging
	SQL     string      // statement that failed, when one was being executed
	Info    *DriverInfo // structured driver info, when available
}

func (e *Error) Error() string {
	// Classified driver errors already embed the cause in Message.
	if e.Cause != nil && e.SQL == "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Unsupported reports that the DBMS behind a connection cannot perform op.
func Unsupported(op, dbms string) *Error {
	return Newf(ErrKindUnsupported, "%s is not supported by %s", op, dbms)
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsUnsupported reports whether err signals an operation the DBMS cannot
// perform. Callers must not treat it as an empty result.
func IsUnsupported(err error) bool {
	return KindOf(err) == ErrKindUnsupported
}

// IsIntegrityViolation reports whether err is a constraint violation.
func IsIntegrityViolation(err error) bool {
	return KindOf(err) == ErrKindIntegrityViolation
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
