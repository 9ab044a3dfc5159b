// Package faults defines the error taxonomy shared by every edition component.
//
// Each failure carries a stable Code. Callers compare failures by code with
// errors.Is against the package sentinels (or faults.Is), so wrapping with
// fmt.Errorf("...: %w", err) never hides the category.
//
// All failures are synchronous and non-recoverable for the current call: the
// host discards every effect of a failed call and records only its receipt.
package faults

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes a failure.
type Code string

const (
	// CodeAlreadyInitialized indicates a second top-level initialize.
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"

	// CodeNotInitializing indicates a sub-initializer ran outside the init window.
	CodeNotInitializing Code = "NOT_INITIALIZING"

	// CodeNotInitialized indicates an operation on an instance that never finished init.
	CodeNotInitialized Code = "NOT_INITIALIZED"

	// CodeUnauthorized indicates a non-owner attempted an owner-only action.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeOperatorNotAllowed indicates the operator filter denied an operator.
	CodeOperatorNotAllowed Code = "OPERATOR_NOT_ALLOWED"

	// CodeInvalidPointer indicates no blob exists at a pointer.
	CodeInvalidPointer Code = "INVALID_POINTER"

	// CodeWriteFailed indicates a blob could not be written.
	CodeWriteFailed Code = "WRITE_FAILED"

	// CodeReadOutOfBounds indicates a range read past the end of a blob.
	CodeReadOutOfBounds Code = "READ_OUT_OF_BOUNDS"

	// CodeAlreadyExists indicates the factory already created a resource for a name.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeInitializationFailed indicates a resource could not be initialized.
	CodeInitializationFailed Code = "INITIALIZATION_FAILED"

	// CodeBatchMintFailed indicates a batch mint violated a resource invariant.
	CodeBatchMintFailed Code = "BATCH_MINT_FAILED"

	// CodeMintFailed indicates a single mint violated a resource invariant.
	CodeMintFailed Code = "MINT_FAILED"

	// CodeTokenNotFound indicates a unit id that was never minted.
	CodeTokenNotFound Code = "TOKEN_NOT_FOUND"

	// CodeInvalidArgument indicates malformed call arguments.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeRegistryUnavailable indicates the operator registry could not answer.
	CodeRegistryUnavailable Code = "REGISTRY_UNAVAILABLE"

	// CodeInternal is used for failures outside the taxonomy (I/O, storage).
	CodeInternal Code = "INTERNAL"
)

// Error is a categorized failure.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context (rendered sorted by key).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Details[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given code around a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// With returns a copy of e with an extra detail.
func (e *Error) With(key, value string) *Error {
	cp := *e
	cp.Details = make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// CodeOf returns the code of the outermost *Error in err's chain.
// Returns CodeInternal for non-nil errors outside the taxonomy and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether any error in err's chain carries code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}
