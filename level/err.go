package level

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ezrec/shenzhen/translate"
)

var f = translate.From

var (
	// Level file errors
	ErrFormatUnknown    = errors.New(f("level format unknown"))
	ErrSourceMissing    = errors.New(f("controller has neither file nor source"))
	ErrSourceAmbiguous  = errors.New(f("controller has both file and source"))
	ErrControllerAbsent = errors.New(f("level has no controllers"))
	ErrCyclesInvalid    = errors.New(f("level cycles must be positive"))
	ErrPinValues        = errors.New(f("pin takes exactly one value per step"))

	// Run errors
	ErrStalled = errors.New(f("round did not settle"))
)

// ErrKeyUnknown is returned for keys in a level file that mean nothing.
type ErrKeyUnknown string

func (err ErrKeyUnknown) Error() string {
	return f("key %v unknown", string(err))
}

// ErrNameDuplicate is returned when two parts of a level share a name.
type ErrNameDuplicate string

func (err ErrNameDuplicate) Error() string {
	return f("name %v duplicated", string(err))
}

// ErrNameUnknown is returned when a part refers to a bus or pin that the
// level does not declare.
type ErrNameUnknown string

func (err ErrNameUnknown) Error() string {
	return f("name %v unknown", string(err))
}

// ErrMismatch is a wrong value on an output.
type ErrMismatch struct {
	Output string
	Index  int
	Want   int
	Got    int
}

func (err *ErrMismatch) Error() string {
	return f("output %v[%d]: want %d, got %d", err.Output, err.Index, err.Want, err.Got)
}

// ErrShort is an output that received fewer values than expected.
type ErrShort struct {
	Output string
	Want   int
	Got    int
}

func (err *ErrShort) Error() string {
	return f("output %v: want %d values, got %d", err.Output, err.Want, err.Got)
}

// ErrVerify collects every verification failure of a run.
type ErrVerify []error

func (err ErrVerify) Error() string {
	texts := make([]string, len(err))
	for n, e := range err {
		texts[n] = e.Error()
	}
	return strings.Join(texts, "; ")
}

func (err ErrVerify) Unwrap() []error {
	return err
}

// ErrStep is a step whose output did not match.
type ErrStep struct {
	Step int    // Counted from 1.
	Name string
	Want []int
	Got  []int
}

func (err *ErrStep) Error() string {
	return f("step %d: %v: want %v, got %v", err.Step, err.Name, err.Want, err.Got)
}
