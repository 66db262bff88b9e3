// Package errs defines the coded failures surfaced to callers. Every code maps
// to a stable HTTP status and public message so clients can tell failures apart.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeProductNotFound     Code = "PRODUCT_NOT_FOUND"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeEmptyCart           Code = "EMPTY_CART"
	CodeConflict            Code = "CONFLICT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeInternal            Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:          {http.StatusBadRequest, "validation failed"},
	CodeProductNotFound:     {http.StatusNotFound, "product not found"},
	CodeUpstreamUnavailable: {http.StatusServiceUnavailable, "product catalog unavailable"},
	CodeEmptyCart:           {http.StatusBadRequest, "cart is empty"},
	CodeConflict:            {http.StatusConflict, "conflict detected"},
	CodeNotFound:            {http.StatusNotFound, "resource not found"},
	CodeUnauthorized:        {http.StatusUnauthorized, "authentication required"},
	CodeForbidden:           {http.StatusForbidden, "access denied"},
	CodeInternal:            {http.StatusInternalServerError, "internal server error"},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Sentinels for errors.Is checks; coded errors unwrap to the sentinel of their code.
var (
	ErrValidation          = errors.New("validation error")
	ErrProductNotFound     = errors.New("product not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInternal            = errors.New("internal error")
)

var sentinelByCode = map[Code]error{
	CodeValidation:          ErrValidation,
	CodeProductNotFound:     ErrProductNotFound,
	CodeUpstreamUnavailable: ErrUpstreamUnavailable,
	CodeEmptyCart:           ErrEmptyCart,
	CodeConflict:            ErrConflict,
	CodeNotFound:            ErrNotFound,
	CodeUnauthorized:        ErrUnauthorized,
	CodeForbidden:           ErrForbidden,
	CodeInternal:            ErrInternal,
}

type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code      { return e.code }
func (e *Error) Message() string { return e.message }
func (e *Error) Cause() error    { return e.cause }
func (e *Error) Sentinel() error { return sentinelByCode[e.code] }
func (e *Error) HTTPStatus() int { return MetadataFor(e.code).HTTPStatus }

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap exposes both the code sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Sentinel(); s != nil {
		out = append(out, s)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// As returns the coded error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf reports the code of err; uncoded errors are internal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.code
	}
	return CodeInternal
}
