// Package apperr defines the closed taxonomy of application errors and the
// classifier that maps any failure onto it.
//
// Every failure that leaves a controller is an *Error. An *Error carries the
// HTTP status and the stable wire code for its Kind, an operational flag, and
// optional structured details. Values are immutable once constructed; the
// With* methods return modified copies.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the error variants.
type Kind uint8

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindTooManyRequests
)

type kindInfo struct {
	name    string
	status  int
	code    string
	message string
}

var kinds = map[Kind]kindInfo{
	KindInternal:        {"internal", http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error"},
	KindBadRequest:      {"bad_request", http.StatusBadRequest, "BAD_REQUEST", "Bad request"},
	KindUnauthorized:    {"unauthorized", http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"},
	KindForbidden:       {"forbidden", http.StatusForbidden, "FORBIDDEN", "Forbidden"},
	KindNotFound:        {"not_found", http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"},
	KindConflict:        {"conflict", http.StatusConflict, "CONFLICT", "Conflict"},
	KindValidation:      {"validation", http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed"},
	KindTooManyRequests: {"too_many_requests", http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests"},
}

func (k Kind) info() kindInfo {
	if ki, ok := kinds[k]; ok {
		return ki
	}
	return kinds[KindInternal]
}

func (k Kind) String() string { return k.info().name }

// HTTPStatus returns the status emitted for the kind.
func (k Kind) HTTPStatus() int { return k.info().status }

// DefaultCode returns the wire code used when none is supplied.
func (k Kind) DefaultCode() string { return k.info().code }

// DefaultMessage returns the message used when none is supplied.
func (k Kind) DefaultMessage() string { return k.info().message }

// Error is the application error.
type Error struct {
	kind        Kind
	code        string
	message     string
	operational bool
	details     map[string]any
	cause       error
	stack       []byte
}

// Option customizes an Error during construction.
type Option func(*Error)

// WithCode overrides the default wire code.
func WithCode(code string) Option { return func(e *Error) { e.code = code } }

// WithMessage overrides the default human-readable message.
func WithMessage(msg string) Option { return func(e *Error) { e.message = msg } }

// WithDetail sets one detail key.
func WithDetail(k string, v any) Option {
	return func(e *Error) {
		if e.details == nil {
			e.details = map[string]any{}
		}
		e.details[k] = v
	}
}

// WithDetails merges kv into the details. The map is copied.
func WithDetails(kv map[string]any) Option {
	return func(e *Error) {
		if len(kv) == 0 {
			return
		}
		if e.details == nil {
			e.details = make(map[string]any, len(kv))
		}
		for k, v := range kv {
			e.details[k] = v
		}
	}
}

// WithCause attaches the diagnostic cause. It is never serialized in production.
func WithCause(err error) Option { return func(e *Error) { e.cause = err } }

// WithOperational overrides the operational flag.
func WithOperational(op bool) Option { return func(e *Error) { e.operational = op } }

// New builds an Error of the given kind. Every kind except KindInternal is
// operational by default.
func New(kind Kind, opts ...Option) *Error {
	ki := kind.info()
	e := &Error{
		kind:        kind,
		code:        ki.code,
		message:     ki.message,
		operational: kind != KindInternal,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func BadRequest(opts ...Option) *Error      { return New(KindBadRequest, opts...) }
func Unauthorized(opts ...Option) *Error    { return New(KindUnauthorized, opts...) }
func Forbidden(opts ...Option) *Error       { return New(KindForbidden, opts...) }
func NotFound(opts ...Option) *Error        { return New(KindNotFound, opts...) }
func Conflict(opts ...Option) *Error        { return New(KindConflict, opts...) }
func Validation(opts ...Option) *Error      { return New(KindValidation, opts...) }
func TooManyRequests(opts ...Option) *Error { return New(KindTooManyRequests, opts...) }
func Internal(opts ...Option) *Error        { return New(KindInternal, opts...) }

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) Kind() Kind          { return e.kind }
func (e *Error) Code() string        { return e.code }
func (e *Error) Message() string     { return e.message }
func (e *Error) StatusCode() int     { return e.kind.HTTPStatus() }
func (e *Error) Operational() bool   { return e.operational }
func (e *Error) Cause() error        { return e.cause }
func (e *Error) Stack() []byte       { return e.stack }
func (e *Error) HasDetails() bool    { return len(e.details) > 0 }
func (e *Error) Detail(k string) any { return e.details[k] }

// Details returns a copy of the details map, or nil when there are none.
func (e *Error) Details() map[string]any { return cloneMap(e.details) }

// WithStack returns a copy of e carrying the goroutine stack captured at the failure site.
func (e *Error) WithStack(stack []byte) *Error {
	cp := *e
	cp.stack = stack
	return &cp
}

// As reports whether err is, or wraps, an application error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err classifies as the given kind.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.kind == k
}

// Code returns the wire code of err, or "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).Code()
}

// HTTPStatus returns the status err maps to, or 200 for nil.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Classify(err).StatusCode()
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if mv, ok := v.(map[string]any); ok {
			out[k] = cloneMap(mv)
			continue
		}
		out[k] = v
	}
	return out
}
