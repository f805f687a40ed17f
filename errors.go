package nntp

import (
	"errors"
	"fmt"
)

// An Error is a coded NNTP error message. The client returns one when a
// reply carries a status other than the one the command expects.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Msg)
}

// NewError builds an Error for code with its registry text.
func NewError(code int) *Error {
	msg, ok := StatusText(code)
	if !ok {
		msg = unrecognizedStatusText
	}
	return &Error{Code: code, Msg: msg}
}

// A MalformedResponseError is returned when the first line of a reply does
// not start with a three digit status code, or an overview line cannot be
// decoded.
type MalformedResponseError struct {
	Line string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("nntp: malformed response %q", e.Line)
}

// ErrFramerDone is returned by Feed once a reply has been completed.
var ErrFramerDone = errors.New("nntp: framer already produced a response")

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code int) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
