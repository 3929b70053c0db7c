package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "persistence"
	}
}

// HTTPStatus maps a kind onto the status code returned at the API boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

const (
	CodeInvalidQuantity      = "InvalidQuantity"
	CodeInvalidOrder         = "InvalidOrder"
	CodeInvalidStatus        = "InvalidStatus"
	CodeInvalidRequest       = "InvalidRequest"
	CodeProductNotFound      = "ProductNotFound"
	CodeOrderNotFound        = "OrderNotFound"
	CodeCustomerNotFound     = "CustomerNotFound"
	CodeAddressNotFound      = "AddressNotFound"
	CodeInsufficientStock    = "InsufficientStock"
	CodeInvalidTransition    = "InvalidTransition"
	CodeAlreadyDelivered     = "AlreadyDelivered"
	CodeReservationUnderflow = "ReservationUnderflow"
	CodeStorageFailure       = "StorageFailure"
	CodeMissingCaller        = "MissingCaller"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so callers can compare against the sentinel-style values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Kind == e.Kind
}

func newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(code, format string, args ...any) *Error {
	return newf(KindValidation, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return newf(KindNotFound, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newf(KindConflict, code, format, args...)
}

func Unauthorized(code, format string, args ...any) *Error {
	return newf(KindUnauthorized, code, format, args...)
}

// Fault reports a broken bookkeeping invariant. It surfaces as a 500.
func Fault(code, format string, args ...any) *Error {
	return newf(KindPersistence, code, format, args...)
}

// Persistence wraps a storage failure. An *Error passes through unchanged.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindPersistence, Code: CodeStorageFailure, Message: "storage failure", Err: err}
}

// KindOf reports the kind of err; anything that is not an *Error counts as persistence.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// CodeOf returns the error code, or CodeStorageFailure for foreign errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeStorageFailure
}
