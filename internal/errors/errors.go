// Package errors defines the coded errors that cross package boundaries: the
// transcriber and store report them, the retry controller records them on
// each attempt, and the HTTP API turns them into status codes.
//
// Two errors match under errors.Is when their codes match, so callers test
// against the sentinels:
//
//	if errors.Is(err, domainerrors.ErrTranscription) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable kind of an error. It is also the "code" field
// of API error bodies.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeValidation          Code = "VALIDATION"
	CodeInternal            Code = "INTERNAL"
	CodeNoConfidentMatch    Code = "NO_CONFIDENT_MATCH"
	CodeIncompleteAlignment Code = "INCOMPLETE_ALIGNMENT"
	CodePersistenceFailure  Code = "PERSISTENCE_FAILURE"
	CodeTranscription       Code = "TRANSCRIPTION_FAILED"
)

var codeStatus = map[Code]int{
	CodeNotFound:            http.StatusNotFound,
	CodeValidation:          http.StatusBadRequest,
	CodeNoConfidentMatch:    http.StatusUnprocessableEntity,
	CodeIncompleteAlignment: http.StatusUnprocessableEntity,
	CodeTranscription:       http.StatusBadGateway,
}

// HTTPStatus is the response status for c; unknown codes are 500.
func (c Code) HTTPStatus() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error carries a code, a message for humans, and optional structured details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

// Sentinels for errors.Is.
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal error"}
	ErrNoConfidentMatch    = &Error{Code: CodeNoConfidentMatch, Message: "no confident match"}
	ErrIncompleteAlignment = &Error{Code: CodeIncompleteAlignment, Message: "incomplete alignment"}
	ErrPersistenceFailure  = &Error{Code: CodePersistenceFailure, Message: "persistence failure"}
	ErrTranscription       = &Error{Code: CodeTranscription, Message: "transcription failed"}
)

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func newf(code Code, format string, args ...any) *Error {
	if len(args) == 0 {
		return &Error{Code: code, Message: format}
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf reports a missing surah, ayah, or recitation.
func NotFoundf(format string, args ...any) *Error { return newf(CodeNotFound, format, args...) }

// Validation reports bad input.
func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }

func Validationf(format string, args ...any) *Error { return newf(CodeValidation, format, args...) }

// ValidationWithDetails reports bad input with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return (&Error{Code: CodeValidation, Message: msg}).WithDetails(details)
}

// IncompleteAlignmentf reports an aligned count that differs from the
// expected ayah count.
func IncompleteAlignmentf(format string, args ...any) *Error {
	return newf(CodeIncompleteAlignment, format, args...)
}

// PersistenceFailure reports a write the store rejected.
func PersistenceFailure(msg string) *Error { return &Error{Code: CodePersistenceFailure, Message: msg} }

// Transcription reports a transcriber that failed or produced unreadable output.
func Transcription(msg string) *Error { return &Error{Code: CodeTranscription, Message: msg} }
