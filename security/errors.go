// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package security

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code surfaced at the API boundary.
type Code string

const (
	CodeSecurityContextMissing Code = "SECURITY_CONTEXT_MISSING"
	CodeSecurityContextInvalid Code = "SECURITY_CONTEXT_INVALID"
	CodeSecurityFilterFailed   Code = "SECURITY_FILTER_FAILED"
	CodeUnsupportedTable       Code = "UNSUPPORTED_TABLE"
	CodeEntityNotFound         Code = "ENTITY_NOT_FOUND"
	CodeDatabaseError          Code = "DATABASE_ERROR"
	CodeBadRequest             Code = "BAD_REQUEST"
	CodePolicyViolation        Code = "POLICY_VIOLATION"
	CodeDeterminismViolation   Code = "DETERMINISM_VIOLATION"
)

// CodedError carries a machine code plus enough structured fields for the
// ingress layer to translate into the external protocol.
type CodedError struct {
	Code    Code
	Op      string
	Table   string
	Pattern string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s (op=%s", msg, e.Op)
		if e.Table != "" {
			msg += fmt.Sprintf(", table=%s", e.Table)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause, if any.
func (e *CodedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CodedError with the same code, so that
// errors.Is(err, security.ErrContextMissing) works regardless of the
// structured fields attached to a particular occurrence.
func (e *CodedError) Is(target error) bool {
	var coded *CodedError
	if !errors.As(target, &coded) {
		return false
	}
	return e.Code == coded.Code
}

// NewError creates a CodedError with the given code and message.
func NewError(code Code, op, table, message string) *CodedError {
	return &CodedError{Code: code, Op: op, Table: table, Message: message}
}

// WrapError creates a CodedError wrapping an underlying cause.
func WrapError(code Code, op, table, message string, err error) *CodedError {
	return &CodedError{Code: code, Op: op, Table: table, Message: message, Err: err}
}

// ErrCode extracts the machine code from an error chain, or empty string.
func ErrCode(err error) Code {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Sentinel values for errors.Is comparisons. Each matches any CodedError
// carrying the same code.
var (
	// ErrContextMissing is returned when an operation requires a security
	// context and none was supplied.
	ErrContextMissing = NewError(CodeSecurityContextMissing, "", "", "security context missing")

	// ErrContextInvalid is returned when the supplied context lacks the
	// identity a table pattern requires, or carries malformed identifiers.
	ErrContextInvalid = NewError(CodeSecurityContextInvalid, "", "", "security context invalid")

	// ErrFilterFailed is returned when the entity schema cannot satisfy the
	// filter protocol for its table pattern.
	ErrFilterFailed = NewError(CodeSecurityFilterFailed, "", "", "security filter failed")

	// ErrUnsupportedTable is returned when an entity kind has no table
	// pattern classification. This is a configuration error, never a
	// permissive default.
	ErrUnsupportedTable = NewError(CodeUnsupportedTable, "", "", "unsupported table")

	// ErrEntityNotFound is returned for rows that do not exist or that the
	// context may not see; the two cases are deliberately indistinguishable.
	ErrEntityNotFound = NewError(CodeEntityNotFound, "", "", "entity not found")

	// ErrBadRequest is returned for malformed caller input such as invalid
	// cursors or unparseable identifiers.
	ErrBadRequest = NewError(CodeBadRequest, "", "", "bad request")
)
