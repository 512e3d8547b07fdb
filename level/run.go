package level

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ezrec/shenzhen/device"
	"github.com/ezrec/shenzhen/internal"
	"github.com/ezrec/shenzhen/pin"
	"github.com/ezrec/shenzhen/scheduler"
	"github.com/ezrec/shenzhen/script"
	"github.com/ezrec/shenzhen/xbus"
)

// Run is a level wired up and ready to execute.
type Run struct {
	Level  *Level
	Logger zerolog.Logger

	Buses       map[string]xbus.XBus
	Pins        map[string]*pin.Pin
	Inputs      map[string]*device.Input
	Outputs     map[string]*device.Output
	Expanders   map[string]*device.Expander
	Memories    map[string]*device.Memory
	Controllers []scheduler.Controller
}

// Result is the outcome of executing a run.
type Result struct {
	Cycles  uint64           // Rounds completed.
	Stalled bool             // A round did not settle in time.
	Outputs map[string][]int // Values received by every output.
}

// Build creates the buses, pins, devices and controllers of a level. Inputs
// are loaded with their values.
func (lvl *Level) Build(logger zerolog.Logger) (run *Run, err error) {
	run = &Run{
		Level:     lvl,
		Logger:    logger,
		Buses:     map[string]xbus.XBus{},
		Pins:      map[string]*pin.Pin{},
		Inputs:    map[string]*device.Input{},
		Outputs:   map[string]*device.Output{},
		Expanders: map[string]*device.Expander{},
		Memories:  map[string]*device.Memory{},
	}

	addBus := func(name string, bus xbus.XBus) (err error) {
		if _, ok := run.Buses[name]; ok {
			err = ErrNameDuplicate(name)
			return
		}
		run.Buses[name] = bus
		return
	}

	for _, spec := range lvl.Pins {
		if _, ok := run.Pins[spec.Name]; ok {
			err = ErrNameDuplicate(spec.Name)
			return
		}
		run.Pins[spec.Name] = pin.New(spec.Initial)
	}

	for _, spec := range lvl.Buses {
		err = addBus(spec.Name, xbus.New())
		if err != nil {
			return
		}
	}

	for _, spec := range lvl.Inputs {
		var mode device.Mode
		mode, err = device.ParseMode(spec.Mode)
		if err != nil {
			err = errors.Wrapf(err, "input %v", spec.Name)
			return
		}
		in, bus := device.NewInput(spec.Name, mode)
		err = addBus(spec.Name, bus)
		if err != nil {
			return
		}
		in.Inject(spec.Values...)
		run.Inputs[spec.Name] = in
	}

	for _, spec := range lvl.Outputs {
		out, bus := device.NewOutput(spec.Name)
		out.SetLogger(logger)
		err = addBus(spec.Name, bus)
		if err != nil {
			return
		}
		run.Outputs[spec.Name] = out
	}

	for _, spec := range lvl.Expanders {
		var pins [3]*pin.Pin
		for n, name := range []string{spec.P0, spec.P1, spec.P2} {
			if name == "" {
				continue
			}
			p, ok := run.Pins[name]
			if !ok {
				err = errors.Wrapf(ErrNameUnknown(name), "expander %v", spec.Name)
				return
			}
			pins[n] = p
		}
		exp, bus := device.NewExpander(pins[0], pins[1], pins[2])
		err = addBus(spec.Name, bus)
		if err != nil {
			return
		}
		run.Expanders[spec.Name] = exp
	}

	for _, spec := range lvl.Memories {
		if _, ok := run.Memories[spec.Name]; ok {
			err = ErrNameDuplicate(spec.Name)
			return
		}
		mem := device.NewRAM(spec.Contents...)
		if spec.ROM {
			mem = device.NewROM(spec.Contents...)
		}
		for n := range mem.Addr {
			err = addBus(fmt.Sprintf("%v.a%d", spec.Name, n), mem.Addr[n])
			if err != nil {
				return
			}
			err = addBus(fmt.Sprintf("%v.d%d", spec.Name, n), mem.Data[n])
			if err != nil {
				return
			}
		}
		run.Memories[spec.Name] = mem
	}

	for n := range lvl.Steps {
		err = run.checkStep(&lvl.Steps[n])
		if err != nil {
			err = errors.Wrapf(err, "step %d", n+1)
			return
		}
	}

	for n := range lvl.Controllers {
		spec := &lvl.Controllers[n]
		var ctrl *script.Controller
		ctrl, err = run.controller(spec)
		if err != nil {
			err = errors.Wrapf(err, "controller %v", spec.Name)
			return
		}
		run.Controllers = append(run.Controllers, ctrl)
	}

	return
}

// checkStep verifies that every name in a step is an input, output or pin
// of the run.
func (run *Run) checkStep(step *Step) (err error) {
	for name, values := range step.Inputs {
		if _, ok := run.Inputs[name]; ok {
			continue
		}
		if _, ok := run.Pins[name]; !ok {
			err = ErrNameUnknown(name)
			return
		}
		if len(values) != 1 {
			err = errors.Wrapf(ErrPinValues, "%v", name)
			return
		}
	}

	for name, values := range step.Outputs {
		if _, ok := run.Outputs[name]; ok {
			continue
		}
		if _, ok := run.Pins[name]; !ok {
			err = ErrNameUnknown(name)
			return
		}
		if len(values) != 1 {
			err = errors.Wrapf(ErrPinValues, "%v", name)
			return
		}
	}

	return
}

func (run *Run) controller(spec *Controller) (ctrl *script.Controller, err error) {
	filename, text, err := run.Level.source(spec)
	if err != nil {
		return
	}

	env := script.Env{
		Buses:  run.Buses,
		Pins:   run.Pins,
		Logger: &run.Logger,
	}

	if len(spec.Buses) > 0 {
		env.Buses = map[string]xbus.XBus{}
		for _, name := range spec.Buses {
			bus, ok := run.Buses[name]
			if !ok {
				err = ErrNameUnknown(name)
				return
			}
			env.Buses[name] = bus
		}
	}

	if len(spec.Pins) > 0 {
		env.Pins = map[string]*pin.Pin{}
		for _, name := range spec.Pins {
			p, ok := run.Pins[name]
			if !ok {
				err = ErrNameUnknown(name)
				return
			}
			env.Pins[name] = p
		}
	}

	return script.New(spec.Name, filename, text, env)
}

// satisfied reports whether every output has at least the values expected.
// A level without outputs runs until its controllers finish.
func (run *Run) satisfied() bool {
	if len(run.Level.Outputs) == 0 {
		return false
	}

	for _, spec := range run.Level.Outputs {
		if len(run.Outputs[spec.Name].Values()) < len(spec.Expect) {
			return false
		}
	}

	return true
}

// Execute runs the level and verifies its outputs.
//
// A level with steps runs one round per step, checking the step's outputs
// after each round and stopping at the first mismatch. Otherwise it runs
// until every controller terminates, every output has received its expected
// values, or the cycle limit is reached. A round that does not settle within
// the level timeout ends the simulation; the outputs are verified either
// way.
func (run *Run) Execute() (result Result, err error) {
	result.Outputs = make(map[string][]int, len(run.Outputs))

	// Inputs of the first step are queued before the controllers start.
	if len(run.Level.Steps) > 0 {
		run.apply(&run.Level.Steps[0])
	}

	sched, err := scheduler.New(run.Controllers, scheduler.WithLogger(run.Logger))
	if err != nil {
		return
	}

	if len(run.Level.Steps) > 0 {
		result.Stalled, err = run.steps(sched, &result)
	} else {
		result.Stalled, err = run.rounds(sched)
	}

	failure := sched.End()

	if run.Logger.Debug().Enabled() {
		for name, value := range run.State() {
			run.Logger.Debug().Str("name", name).Int("value", value).Msg("level: final state")
		}
	}

	result.Cycles = sched.Cycle()
	for name, out := range run.Outputs {
		result.Outputs[name] = append(result.Outputs[name], out.Drain()...)
	}

	if err != nil {
		return
	}

	err = run.verify(result)
	if err == nil && failure != nil {
		err = failure
	}

	return
}

// advance runs one round under the level timeout. When the watchdog fires,
// whether before or after Advance returns, the scheduler is being ended and
// the round counts as stalled.
func (run *Run) advance(sched *scheduler.Scheduler) (report scheduler.Report, stalled bool, err error) {
	watchdog := time.AfterFunc(run.Level.timeout, func() {
		sched.End()
	})

	report, err = sched.Advance()

	if !watchdog.Stop() {
		stalled = true
		err = nil
		run.Logger.Warn().Uint64("cycle", sched.Cycle()).Msg("level: round did not settle")
		return
	}

	for _, term := range report.Terminated {
		if term.Failed() {
			run.Logger.Error().Str("controller", term.Name).Err(term.Err).Msg("level: controller failed")
		}
	}

	return
}

// rounds advances until the outputs are satisfied, the controllers are
// done, or the cycle limit is reached.
func (run *Run) rounds(sched *scheduler.Scheduler) (stalled bool, err error) {
	for !run.satisfied() && sched.Cycle() < uint64(run.Level.Cycles) {
		var report scheduler.Report
		report, stalled, err = run.advance(sched)
		if stalled || err != nil || report.Done {
			return
		}
	}

	return
}

// steps runs one round per step and checks its outputs. A step whose round
// does not settle fails with ErrStalled.
func (run *Run) steps(sched *scheduler.Scheduler, result *Result) (stalled bool, err error) {
	for n := range run.Level.Steps {
		step := &run.Level.Steps[n]
		if n > 0 {
			run.apply(step)
		}

		_, stalled, err = run.advance(sched)
		if err != nil {
			return
		}
		if stalled {
			err = errors.Wrapf(ErrStalled, "step %d", n+1)
			return
		}

		err = run.check(n+1, step, result)
		if err != nil {
			return
		}
	}

	return
}

// apply queues the inputs of a step and sets its pins.
func (run *Run) apply(step *Step) {
	for name, values := range step.Inputs {
		if in, ok := run.Inputs[name]; ok {
			in.Inject(values...)
			continue
		}
		run.Pins[name].Set(values[0])
	}
}

// check drains every output into result and compares it, and every listed
// pin, with the step. Outputs are visited in name order so the first
// mismatch reported is stable.
func (run *Run) check(number int, step *Step, result *Result) (err error) {
	for _, name := range slices.Sorted(maps.Keys(run.Outputs)) {
		got := run.Outputs[name].Drain()
		result.Outputs[name] = append(result.Outputs[name], got...)

		want := step.Outputs[name]
		if err == nil && !slices.Equal(want, got) {
			err = &ErrStep{Step: number, Name: name, Want: want, Got: got}
		}
	}
	if err != nil {
		return
	}

	for _, name := range slices.Sorted(maps.Keys(step.Outputs)) {
		p, ok := run.Pins[name]
		if !ok {
			continue
		}
		if got := p.Get(); got != step.Outputs[name][0] {
			err = &ErrStep{Step: number, Name: name, Want: step.Outputs[name], Got: []int{got}}
			return
		}
	}

	return
}

// verify compares every output with its expected values.
func (run *Run) verify(result Result) error {
	var failures ErrVerify
	for _, spec := range run.Level.Outputs {
		got := result.Outputs[spec.Name]
		for n, want := range spec.Expect {
			if n >= len(got) {
				failures = append(failures, &ErrShort{Output: spec.Name, Want: len(spec.Expect), Got: len(got)})
				break
			}
			if got[n] != want {
				failures = append(failures, &ErrMismatch{Output: spec.Name, Index: n, Want: want, Got: got[n]})
				break
			}
		}
	}

	if len(failures) == 0 {
		return nil
	}

	return failures
}

// Names returns the sorted names of every bus in the run.
func (run *Run) Names() []string {
	return slices.Sorted(maps.Keys(run.Buses))
}

// State yields the last value written to every bus (sorted by name), then
// the level of every pin (sorted by name). A bus never written reads as 0.
func (run *Run) State() iter.Seq2[string, int] {
	return internal.IterSeq2Concat(
		internal.IterSorted(run.Buses, func(bus xbus.XBus) int {
			value, _ := bus.Value()
			return value
		}),
		internal.IterSorted(run.Pins, (*pin.Pin).Get),
	)
}
