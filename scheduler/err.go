package scheduler

import (
	"errors"

	"github.com/ezrec/shenzhen/translate"
)

var f = translate.From

var (
	// Suspension errors
	ErrCancelled = errors.New(f("cancelled"))

	// Controller errors
	ErrControllerFailed = errors.New(f("controller failed"))
	ErrControllerNil    = errors.New(f("controller nil"))

	// Scheduler misuse errors
	ErrEnded     = errors.New(f("scheduler ended"))
	ErrAdvancing = errors.New(f("advance already in progress"))
)

// ErrDuplicateName is returned when two controllers share a name.
type ErrDuplicateName string

func (err ErrDuplicateName) Error() string {
	return f("controller %v duplicated", string(err))
}

// ErrController records the failure of a single controller.
type ErrController struct {
	Name string
	Err  error
}

func (err *ErrController) Error() string {
	return f("controller %v: %v", err.Name, err.Err)
}

func (err *ErrController) Unwrap() error {
	return err.Err
}

func (err *ErrController) Is(target error) bool {
	return target == ErrControllerFailed
}

// ErrPanic is the failure recorded for a controller that panicked.
type ErrPanic struct {
	Value any
}

func (err ErrPanic) Error() string {
	return f("panic: %v", err.Value)
}
