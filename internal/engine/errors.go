package engine

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind string

const (
	KindConflict     Kind = "CONFLICT"      // uniqueness would be violated
	KindNotFound     Kind = "NOT_FOUND"     // referenced room or lecturer is absent
	KindInvalidState Kind = "INVALID_STATE" // entity exists but cannot take the request
	KindInvalid      Kind = "INVALID"       // malformed input
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its Kind.
var (
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrInvalid      = &Error{Kind: KindInvalid}
)

// Error is the single rejection value returned by every operation.
type Error struct {
	Kind Kind
	Op   string // operation name, e.g. "checkIn"
	Msg  string // human-readable, shown as the error notice
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or "" if err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the human-readable message of an engine error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func reject(op string, kind Kind, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}
