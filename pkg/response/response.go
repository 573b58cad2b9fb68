package response

import (
	"errors"
)

// Error is the sentinel type the api packages build their error vars from.
// Code is the HTTP status the handler layer should answer with.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

// Is matches by code and message, so a wrapped copy of a sentinel still
// compares equal to the original.
func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, msg string) error {
	return &Error{code, errors.New(msg)}
}
