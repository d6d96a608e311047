package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable error identifier sent to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Cart, checkout and capture outcomes.
	CodeProductNotFound   Code = "PRODUCT_NOT_FOUND"
	CodeInvalidVariant    Code = "INVALID_VARIANT"
	CodeProductInactive   Code = "PRODUCT_INACTIVE"
	CodeMixedCurrency     Code = "MIXED_CURRENCY"
	CodeInvalidCoupon     Code = "INVALID_COUPON"
	CodeEmptyCart         Code = "EMPTY_CART"
	CodeOrderNotFound     Code = "ORDER_NOT_FOUND"
	CodeOrderNotPending   Code = "ORDER_NOT_PENDING"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
)

// surface says how a code reaches the client. public replaces the error's
// own message when hidden is set.
type surface struct {
	status    int
	public    string
	hidden    bool
	details   bool
	retryable bool
}

var surfaces = map[Code]surface{
	CodeValidation:    {status: http.StatusBadRequest, public: "validation failed", details: true},
	CodeUnauthorized:  {status: http.StatusUnauthorized, public: "authentication required"},
	CodeForbidden:     {status: http.StatusForbidden, public: "access denied"},
	CodeNotFound:      {status: http.StatusNotFound, public: "resource not found"},
	CodeConflict:      {status: http.StatusConflict, public: "conflict detected"},
	CodeStateConflict: {status: http.StatusUnprocessableEntity, public: "state transition disallowed", details: true},
	CodeIdempotency:   {status: http.StatusConflict, public: "idempotency key reused", details: true},
	CodeRateLimit:     {status: http.StatusTooManyRequests, public: "rate limit exceeded"},
	CodeInternal:      {status: http.StatusInternalServerError, public: "internal server error", hidden: true, retryable: true},
	CodeDependency:    {status: http.StatusServiceUnavailable, public: "dependency unavailable", hidden: true, details: true, retryable: true},

	// The storefront shows these messages verbatim, so every business
	// failure is a 400 apart from the two lookups.
	CodeProductNotFound:   {status: http.StatusNotFound, public: "product not found", details: true},
	CodeInvalidVariant:    {status: http.StatusBadRequest, public: "invalid variant", details: true},
	CodeProductInactive:   {status: http.StatusBadRequest, public: "product inactive", details: true},
	CodeMixedCurrency:     {status: http.StatusBadRequest, public: "mixed currency", details: true},
	CodeInvalidCoupon:     {status: http.StatusBadRequest, public: "invalid coupon", details: true},
	CodeEmptyCart:         {status: http.StatusBadRequest, public: "cart is empty"},
	CodeOrderNotFound:     {status: http.StatusNotFound, public: "order not found"},
	CodeOrderNotPending:   {status: http.StatusBadRequest, public: "order is not pending", details: true},
	CodeInsufficientStock: {status: http.StatusBadRequest, public: "insufficient stock", details: true},
}

func (c Code) surface() surface {
	if s, ok := surfaces[c]; ok {
		return s
	}
	return surfaces[CodeInternal]
}

// HTTPStatus is the response status for c; unknown codes are 500.
func (c Code) HTTPStatus() int { return c.surface().status }

// PublicMessage is the generic text for c.
func (c Code) PublicMessage() string { return c.surface().public }

// HidesMessage reports whether the error's own message must stay in logs.
func (c Code) HidesMessage() bool { return c.surface().hidden }

// ExposesDetails reports whether Details may be sent to the client.
func (c Code) ExposesDetails() bool { return c.surface().details }

// Retryable reports whether a client may retry the same request unchanged.
func (c Code) Retryable() bool { return c.surface().retryable }

// Error is a coded failure. message is client facing unless the code hides
// it; cause is only ever logged.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf formats the client facing message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err; a nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf labels err for metrics and logs: empty for nil, CodeInternal for
// errors that carry no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		return typed.code
	}
	return CodeInternal
}
