package services

import (
	"errors"
	"net/http"
)

// Kind classifies a service failure. The HTTP layer maps it onto a status.
type Kind string

const (
	ValidationError Kind = "ValidationError"
	AuthError       Kind = "AuthError"
	ConflictError   Kind = "ConflictError"
	NotFoundError   Kind = "NotFoundError"
	UploadError     Kind = "UploadError"
	PaymentError    Kind = "PaymentError"
	InternalError   Kind = "InternalError"
)

var statusByKind = map[Kind]int{
	ValidationError: http.StatusBadRequest,
	AuthError:       http.StatusUnauthorized,
	ConflictError:   http.StatusConflict,
	NotFoundError:   http.StatusNotFound,
	UploadError:     http.StatusBadRequest,
	PaymentError:    http.StatusInternalServerError,
	InternalError:   http.StatusInternalServerError,
}

// Error is the typed failure returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	// Status overrides the kind's default status when non-zero.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (e *Error) KindName() string { return string(e.Kind) }

func (e *Error) FieldErrors() map[string]string { return e.Fields }

// PublicMessage hides internal detail from clients.
func (e *Error) PublicMessage() string {
	if e.Kind == InternalError && e.Message == "" {
		return "Internal server error"
	}
	return e.Message
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: ValidationError, Message: msg, Fields: fields}
}

func Auth(msg string) *Error {
	return &Error{Kind: AuthError, Message: msg}
}

// Forbidden is an AuthError answered with 403.
func Forbidden(msg string) *Error {
	return &Error{Kind: AuthError, Message: msg, Status: http.StatusForbidden}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ConflictError, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: NotFoundError, Message: msg}
}

func Upload(msg string, err error) *Error {
	return &Error{Kind: UploadError, Message: msg, Err: err}
}

func Payment(msg string, err error) *Error {
	return &Error{Kind: PaymentError, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: InternalError, Message: msg, Err: err}
}

// IsKind reports whether err is a service error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}
