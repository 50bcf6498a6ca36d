package reservation

import (
	"errors"
	"fmt"
)

// Code classifies a reservation failure.
type Code string

const (
	CodeSlotUnavailable   Code = "SLOT_UNAVAILABLE"
	CodeSlotNotFound      Code = "SLOT_NOT_FOUND"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeNotFound          Code = "NOT_FOUND"
)

var messages = map[Code]string{
	CodeSlotUnavailable:   "This slot is no longer available, please choose another.",
	CodeSlotNotFound:      "The booking could not be completed.",
	CodeInvalidTransition: "This booking can no longer be modified.",
	CodeInvalidRequest:    "The booking request is invalid.",
	CodeNotFound:          "Not found.",
}

// Message returns the user-facing text for c.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "The booking could not be completed."
}

// Error is the typed failure returned by the engine. Detail is for logs and API clients;
// Code.Message is safe to show to end users.
type Error struct {
	Code   Code
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, ErrSlotUnavailable) works
// for every detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrSlotUnavailable   = &Error{Code: CodeSlotUnavailable}
	ErrSlotNotFound      = &Error{Code: CodeSlotNotFound}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrInvalidRequest    = &Error{Code: CodeInvalidRequest}
	ErrNotFound          = &Error{Code: CodeNotFound}
)

func newError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the reservation code from err, or "" when err is not a reservation error.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
