package apperr

import (
	"net/http"
)

// Error is a failure with a transport status and a machine-readable code.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy carrying a more specific message.
func (e *Error) With(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// Wrap returns a copy carrying the underlying cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return New(http.StatusForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, message)
}

func Validation(message string) *Error {
	return BadRequest(CodeValidation, message)
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "Internal server error", Err: err}
}

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeDuplicateField   = "DUPLICATE_FIELD"
	CodeResourceNotFound = "RESOURCE_NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

var (
	ErrResourceNotFound = NotFound(CodeResourceNotFound, "Resource not found")
	ErrDuplicateField   = BadRequest(CodeDuplicateField, "Duplicate field value entered")
)
