package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a request failure for the webhook failure policy.
type Kind string

const (
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindProvider   Kind = "provider"
	KindDelivery   Kind = "delivery"
	KindInternal   Kind = "internal"
)

type Error struct {
	Status int
	Code   string
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Kind: KindInternal, Err: err}
}

func Validation(code string, err error) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Kind: KindValidation, Err: err}
}

func Storage(code string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: code, Kind: KindStorage, Err: err}
}

func Provider(code string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: code, Kind: KindProvider, Err: err}
}

func Delivery(code string, err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: code, Kind: KindDelivery, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status to report for err.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
