package device

import (
	"strings"
	"sync"

	"github.com/ezrec/shenzhen/xbus"
)

// Mode selects what an Input provides when its queue is empty: a blocking
// input makes readers wait, a non-blocking one provides NONBLOCKING_EMPTY.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_BLOCKING    = Mode(0) // blocking
	MODE_NONBLOCKING = Mode(1) // nonblocking
)

// NONBLOCKING_EMPTY is read from a non-blocking Input with nothing queued.
const NONBLOCKING_EMPTY = -999

// ParseMode converts "blocking" or "nonblocking" to a Mode.
func ParseMode(text string) (mode Mode, err error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "blocking":
		mode = MODE_BLOCKING
	case "nonblocking", "non-blocking":
		mode = MODE_NONBLOCKING
	default:
		err = ErrModeInvalid
	}

	return
}

// Input feeds program input to the readers of a bus. Every read takes the
// next queued value, so no value is lost or seen twice across readers.
type Input struct {
	name string
	mode Mode
	bus  xbus.XBus

	mu    sync.Mutex
	queue []int
}

var _ xbus.Source = (*Input)(nil)

// NewInput creates an input and the bus it supplies.
func NewInput(name string, mode Mode) (in *Input, bus xbus.XBus) {
	bus = xbus.New()
	in = &Input{
		name: name,
		mode: mode,
		bus:  bus,
	}
	bus.Supply(in)

	return
}

// Name returns the input name.
func (in *Input) Name() string {
	return in.name
}

// Inject appends values to the queue and wakes any reader waiting for one.
// Values may stay queued across cycles.
func (in *Input) Inject(values ...int) {
	in.mu.Lock()
	in.queue = append(in.queue, values...)
	in.mu.Unlock()

	in.bus.Notify()
}

// Pending returns the number of queued values.
func (in *Input) Pending() int {
	in.mu.Lock()
	defer in.mu.Unlock()

	return len(in.queue)
}

// Ready reports whether a read would return without waiting.
func (in *Input) Ready() bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	return len(in.queue) > 0 || in.mode == MODE_NONBLOCKING
}

// Provide takes the next queued value.
func (in *Input) Provide() (value int) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.queue) == 0 {
		return NONBLOCKING_EMPTY
	}

	value = in.queue[0]
	in.queue = in.queue[1:]

	return
}
