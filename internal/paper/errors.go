package paper

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an engine failure. Kinds are stable wire values: the
// HTTP layer serializes them verbatim in error bodies.
type Kind string

const (
	KindValidation           Kind = "VALIDATION_ERROR"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindInsufficientCash     Kind = "INSUFFICIENT_CASH"
	KindInsufficientPosition Kind = "INSUFFICIENT_POSITION"
	KindPriceUnavailable     Kind = "PRICE_UNAVAILABLE"
	KindWalletNotFound       Kind = "WALLET_NOT_FOUND"
	KindTxConflict           Kind = "STORE_TRANSACTION_CONFLICT"
	KindInternal             Kind = "INTERNAL"
)

// Error is a typed engine failure. Validation errors carry the field
// they refer to.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newValidation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the failure kind from an error, defaulting to
// KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a failure kind to the response status the request
// layer should use.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInsufficientCash, KindInsufficientPosition:
		return http.StatusConflict
	case KindPriceUnavailable:
		return http.StatusServiceUnavailable
	default:
		// WALLET_NOT_FOUND, STORE_TRANSACTION_CONFLICT (retries
		// exhausted) and anything untyped are server faults.
		return http.StatusInternalServerError
	}
}
