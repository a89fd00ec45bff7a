package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error leaving a service wraps exactly one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
	ErrAuth       = errors.New("authentication required")
	ErrAdapter    = errors.New("external service failure")
	ErrNotFound   = errors.New("not found")
)

// Error carries the kind, the failing operation and the underlying cause.
// errors.Is matches both the kind and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Validation(op string, err error) error { return &Error{Kind: ErrValidation, Op: op, Err: err} }
func Storage(op string, err error) error    { return &Error{Kind: ErrStorage, Op: op, Err: err} }
func Auth(op string) error                  { return &Error{Kind: ErrAuth, Op: op} }
func Adapter(op string, err error) error    { return &Error{Kind: ErrAdapter, Op: op, Err: err} }
func NotFound(op string) error              { return &Error{Kind: ErrNotFound, Op: op} }

// KindOf reports the kind an error was wrapped with, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrAuth, ErrAdapter, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
