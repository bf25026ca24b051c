// Package serrors holds the service error taxonomy shared by every layer.
// Services return *Error values; transports map the Kind to a status code.
package serrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExternal:
		return "external_dependency"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status code the API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Fields    map[string]string
	Err       error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error carrying the same code, which lets
// package-level sentinels be compared with errors.Is after Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func (e *Error) WithField(name, reason string) *Error {
	cp := *e
	cp.Fields = make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[name] = reason
	return &cp
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Unauthenticated(code, message string) *Error {
	return New(KindUnauthenticated, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

// External marks a failing upstream. Retryable tells callers a later attempt
// may succeed.
func External(code, message string, retryable bool, cause error) *Error {
	return &Error{Kind: KindExternal, Code: code, Message: message, Retryable: retryable, Err: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: "internal error", Err: cause}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf classifies err, treating anything outside the taxonomy as internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err onto a status code. Retryable upstream failures answer
// 503 so clients know to try again.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if e.Kind == KindExternal && e.Retryable {
		return http.StatusServiceUnavailable
	}
	return e.Kind.HTTPStatus()
}
