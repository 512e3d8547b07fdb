package script

import (
	"errors"

	"github.com/ezrec/shenzhen/translate"
)

var f = translate.From

var (
	// Program errors
	ErrExecuteMissing = errors.New(f("execute() not defined"))
	ErrExecuteInvalid = errors.New(f("execute is not callable"))
)

// ErrBusUnknown is returned when a program names a bus it is not wired to.
type ErrBusUnknown string

func (err ErrBusUnknown) Error() string {
	return f("bus %v unknown", string(err))
}

// ErrPinUnknown is returned when a program names a pin it is not wired to.
type ErrPinUnknown string

func (err ErrPinUnknown) Error() string {
	return f("pin %v unknown", string(err))
}
