package device

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ezrec/shenzhen/xbus"
)

// Output records every value written to its bus.
type Output struct {
	name string

	mu     sync.Mutex
	values []int
	logger zerolog.Logger
}

var _ xbus.Sink = (*Output)(nil)

// NewOutput creates an output and the bus it listens to.
func NewOutput(name string) (out *Output, bus xbus.XBus) {
	out = &Output{
		name:   name,
		logger: zerolog.Nop(),
	}
	bus = xbus.New()
	bus.Connect(out)

	return
}

// Name returns the output name.
func (out *Output) Name() string {
	return out.name
}

// SetLogger echoes every recorded value to logger.
func (out *Output) SetLogger(logger zerolog.Logger) {
	out.mu.Lock()
	defer out.mu.Unlock()

	out.logger = logger
}

// Accept records a value.
func (out *Output) Accept(value int) {
	out.mu.Lock()
	defer out.mu.Unlock()

	out.values = append(out.values, value)
	out.logger.Info().Str("output", out.name).Int("value", value).Msg("output")
}

// Values returns a copy of the recorded values.
func (out *Output) Values() []int {
	out.mu.Lock()
	defer out.mu.Unlock()

	return slices.Clone(out.values)
}

// Drain returns the recorded values and forgets them.
func (out *Output) Drain() (values []int) {
	out.mu.Lock()
	defer out.mu.Unlock()

	values = out.values
	out.values = nil

	return
}
