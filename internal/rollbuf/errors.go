package rollbuf

import (
	"errors"
	"fmt"
)

// errors returned by Buffer operations.
var (
	ErrOutOfRange      = errors.New("argument out of range")
	ErrBelowRange      = fmt.Errorf("%w: below lower bound", ErrOutOfRange)
	ErrAboveRange      = fmt.Errorf("%w: not below upper bound", ErrOutOfRange)
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
)

// ArgumentError reports which parameter of a call was rejected.
type ArgumentError struct {
	Param string
	Value any
	Err   error
}

func (e *ArgumentError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("argument '%s': %v", e.Param, e.Err)
	}
	return fmt.Sprintf("argument '%s': %v (value: %v)", e.Param, e.Err, e.Value)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

func newArgumentError(param string, value any, err error) error {
	return &ArgumentError{
		Param: param,
		Value: value,
		Err:   err,
	}
}

// UnsupportedError is returned by the interior insert and remove operations.
// A Buffer only appends at the tail.
type UnsupportedError struct {
	Op string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, ErrNotSupported)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrNotSupported
}

// checkIndex validates index against [0, count).
func checkIndex(index, count int) error {
	if index < 0 {
		return newArgumentError("index", index, ErrBelowRange)
	}
	if index >= count {
		return newArgumentError("index", index, ErrAboveRange)
	}
	return nil
}
