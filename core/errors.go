package core

import (
	"github.com/pkg/errors"
)

// ErrorKind classifies engine failures so that callers (HTTP, CLI) can react without
// knowing every domain sentinel.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindEntryClosed
	KindInvalidArgument
)

var kindNames = map[ErrorKind]string{
	KindUnknown:         "unknown",
	KindNotFound:        "not found",
	KindInvalidState:    "invalid state",
	KindEntryClosed:     "entry closed",
	KindInvalidArgument: "invalid argument",
}

func (k ErrorKind) String() string { return kindNames[k] }

// Kind sentinels. Use with errors.Is: errors.Is(err, core.ErrNotFound).
var (
	ErrNotFound        error = &Error{Kind: KindNotFound}
	ErrInvalidState    error = &Error{Kind: KindInvalidState}
	ErrEntryClosed     error = &Error{Kind: KindEntryClosed}
	ErrInvalidArgument error = &Error{Kind: KindInvalidArgument}
)

// Error is a domain error of a given kind.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (err *Error) Error() string {
	if err.Msg == "" {
		return err.Kind.String()
	}
	return err.Msg
}

// Is matches kind sentinels (no message) against any error of the same kind.
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg == "" {
		return t.Kind == err.Kind
	}
	return t == err
}

func NewNotFoundError(msg string) error        { return &Error{Kind: KindNotFound, Msg: msg} }
func NewInvalidStateError(msg string) error    { return &Error{Kind: KindInvalidState, Msg: msg} }
func NewEntryClosedError(msg string) error     { return &Error{Kind: KindEntryClosed, Msg: msg} }
func NewInvalidArgumentError(msg string) error { return &Error{Kind: KindInvalidArgument, Msg: msg} }

// KindOf returns the kind of err, looking through wrapped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var (
		domainErr *Error
		validErr  *ValidationError
	)
	switch {
	case errors.As(err, &validErr):
		return KindInvalidArgument
	case errors.As(err, &domainErr):
		return domainErr.Kind
	}
	return KindUnknown
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// Is makes every ValidationError an InvalidArgument.
func (err ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
