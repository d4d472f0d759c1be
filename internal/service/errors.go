package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrDuplicate      = errors.New("already exists")
	ErrNotFound       = errors.New("not found")
	ErrCannotCheckOut = errors.New("participant is not checked in")
)

// ValidationError is returned before any command reaches the store.
type ValidationError struct {
	Msg   string
	cause error
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrValidation, e.cause}
	}
	return []error{ErrValidation}
}

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func duplicate(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...), cause: ErrDuplicate}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s %w", kind, id, ErrNotFound)
}
