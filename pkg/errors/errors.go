// Package errors defines AppError, the structured error carried across all
// layers of the scoring engine.  A typed code classifies the failure, an
// optional detail string adds context for operators, and standard wrapping
// keeps errors.Is / errors.As working through the chain.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth caps the number of frames captured per error.
const stackDepth = 32

// CodeUnknown is what GetCode reports when no AppError is in the chain.
const CodeUnknown = ErrorCode("UNKNOWN")

// captureStack formats the call stack starting skip+2 frames up, so the
// factory functions themselves never appear in the trace.
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			return sb.String()
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError pairs an error code with a message, an optional detail and an
// optional cause.  The stack from the construction site rides along for
// logging; Error() leaves it out.
//
//	return errors.New(errors.ErrCodeComponentTypeUnknown, "unknown component type \"qsar\"")
//	return errors.Wrap(repoErr, errors.CodeDBQueryError, "persist step failed")
type AppError struct {
	Code    ErrorCode
	Message string

	// Detail carries operator-facing context such as component names,
	// SMILES strings or run identifiers.
	Detail string

	// Cause is the wrapped lower-level error, if any.
	Cause error

	// Stack is the call stack captured at construction.
	Stack string
}

// Error renders "[CODE] message" with ": detail" appended when present.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithDetail copies the error with Detail set.  Nil-safe.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause copies the error with Cause set.  Nil-safe.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New builds an AppError with a captured stack.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Stack: captureStack(1)}
}

// Newf builds an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Stack: captureStack(1)}
}

// Wrap attaches a code and message to err.  A nil err yields nil, so Wrap
// composes with plain returns:
//
//	return errors.Wrap(repo.SaveStep(ctx, rec), errors.CodeDBQueryError, "persist step failed")
//
// Passing CodeUnknown keeps the code of the wrapped AppError, if it has one,
// so adding context never erases the original classification.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err, Stack: captureStack(1)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain holds a not-found classification,
// generic or run-specific.
func IsNotFound(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			switch ae.Code {
			case CodeNotFound, CodeRunNotFound:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode returns the code of the first AppError in err's chain, CodeOK for
// nil and CodeUnknown when the chain holds no AppError.  Middleware uses it
// as a metric label.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Shorthand constructors
// ─────────────────────────────────────────────────────────────────────────────

func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// InvalidState flags a domain state violation as a conflict.
func InvalidState(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Stack: captureStack(1)}
}

func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Stack: captureStack(1)}
}

func Timeout(message string) *AppError {
	return &AppError{Code: ErrCodeTimeout, Message: message, Stack: captureStack(1)}
}

// Is, As and Unwrap re-export the standard helpers so call sites need only
// one errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

func Unwrap(err error) error { return errors.Unwrap(err) }

//Personal.AI order the ending
