package common

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so callers can react without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDuplicateKey
	KindAuthFailure
	KindForbidden
	KindNotFound
	KindStoreFailure
	KindGatewayFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateKey:
		return "duplicate_key"
	case KindAuthFailure:
		return "auth_failure"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindStoreFailure:
		return "store_failure"
	case KindGatewayFailure:
		return "gateway_failure"
	default:
		return "unknown"
	}
}

// Error is the error type returned by services, stores and gateways.
// Msg is safe to show to an end user; Err is the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and message, so package level
// sentinels work with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

func E(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }

func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Msg: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }

func StoreFailure(err error) *Error {
	return &Error{Kind: KindStoreFailure, Msg: "store failure", Err: err}
}

func GatewayFailure(err error) *Error {
	return &Error{Kind: KindGatewayFailure, Msg: "agent gateway failure", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the user facing message of err. Unclassified errors
// never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		switch e.Kind {
		case KindStoreFailure, KindUnknown:
			return "internal error"
		}
		return e.Msg
	}
	return "internal error"
}

// HTTPStatus maps an error kind to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicateKey:
		return http.StatusConflict
	case KindAuthFailure:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindGatewayFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
