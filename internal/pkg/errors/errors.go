package errors

import "errors"

var (
	// ErrNotFound: no row for the requested key.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: caller passed a blank or malformed key.
	ErrInvalidArgument = errors.New("invalid argument")
)
