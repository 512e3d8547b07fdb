// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// record is the Scheduler's view of one controller.
type record struct {
	name     string
	state    State
	err      error
	reported bool
}

// Scheduler owns a set of controllers and drives them through lockstep
// cycles.
type Scheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	records []*record
	running int    // Records in STATE_RUNNING.
	live    int    // Records not yet in STATE_TERMINATED.
	cycle   uint64 // Completed rounds.
	phase   uint64 // Barrier generation; parked controllers wait for it to move.

	advancing bool
	done      bool // Completion has been reported.
	ended     bool
	failure   error

	ctx     context.Context
	cancel  context.CancelCauseFunc
	stop    []func() bool
	group   errgroup.Group
	endOnce sync.Once

	log zerolog.Logger
}

// New starts every controller on its own goroutine and returns the
// Scheduler driving them. The order of controllers only affects reporting.
func New(controllers []Controller, opts ...Option) (sched *Scheduler, err error) {
	config := options{
		parent: context.Background(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	names := make(map[string]bool, len(controllers))
	for _, ctrl := range controllers {
		if ctrl == nil {
			err = ErrControllerNil
			return
		}
		name := ctrl.Name()
		if names[name] {
			err = ErrDuplicateName(name)
			return
		}
		names[name] = true
	}

	sched = &Scheduler{
		records: make([]*record, len(controllers)),
		running: len(controllers),
		live:    len(controllers),
		log:     config.logger,
	}
	sched.cond = sync.NewCond(&sched.mu)

	// The shared context keeps the parent's values but not its
	// cancellation, so that the cause seen by controllers is always
	// ErrCancelled.
	sched.ctx, sched.cancel = context.WithCancelCause(context.WithoutCancel(config.parent))
	sched.stop = []func() bool{
		context.AfterFunc(config.parent, func() { sched.cancel(ErrCancelled) }),
		context.AfterFunc(sched.ctx, sched.wake),
	}

	for n, ctrl := range controllers {
		sched.records[n] = &record{
			name:  ctrl.Name(),
			state: STATE_RUNNING,
		}
	}

	for n, ctrl := range controllers {
		rec := sched.records[n]
		sched.group.Go(func() error {
			return sched.run(ctrl, rec)
		})
	}

	sched.log.Debug().Int("controllers", len(controllers)).Msg("scheduler: start")

	return
}

// run executes one controller and records how it terminated.
func (sched *Scheduler) run(ctrl Controller, rec *record) (err error) {
	ctx := &Context{
		Context: sched.ctx,
		sched:   sched,
		rec:     rec,
	}

	defer func() {
		if r := recover(); r != nil {
			err = ErrPanic{Value: r}
		}
		if err != nil && !errors.Is(err, ErrCancelled) {
			err = &ErrController{Name: rec.name, Err: err}
		}
		sched.terminate(rec, err)
		if errors.Is(err, ErrCancelled) {
			err = nil
		}
	}()

	err = ctrl.Run(ctx)

	return
}

func (sched *Scheduler) terminate(rec *record, err error) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	if rec.state == STATE_RUNNING {
		sched.running--
	}
	rec.state = STATE_TERMINATED
	rec.err = err
	sched.live--

	event := sched.log.Debug()
	if err != nil && !errors.Is(err, ErrCancelled) {
		event = sched.log.Warn()
	}
	event.Str("controller", rec.name).Uint64("cycle", sched.cycle).Err(err).Msg("scheduler: terminated")

	sched.cond.Broadcast()
}

// park blocks a controller at the barrier until Advance moves the phase, or
// until cancellation.
func (sched *Scheduler) park(rec *record) error {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	if sched.ctx.Err() != nil {
		return ErrCancelled
	}

	phase := sched.phase
	rec.state = STATE_PARKED
	sched.running--
	sched.cond.Broadcast()

	for sched.phase == phase {
		if sched.ctx.Err() != nil {
			rec.state = STATE_RUNNING
			sched.running++
			return ErrCancelled
		}
		sched.cond.Wait()
	}

	return nil
}

// settle waits, with the lock held, until no controller is running.
func (sched *Scheduler) settle() error {
	for sched.running > 0 {
		if sched.ctx.Err() != nil {
			return ErrCancelled
		}
		sched.cond.Wait()
	}

	return nil
}

func (sched *Scheduler) wake() {
	sched.mu.Lock()
	sched.cond.Broadcast()
	sched.mu.Unlock()
}

// Advance runs the simulation for one cycle and reports which controllers
// terminated during it. If every controller has already terminated no round
// is run and the cycle counter is unchanged. Once a report with Done has been
// returned, further calls return the same completion without running a round.
func (sched *Scheduler) Advance() (report Report, err error) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	if sched.ended {
		err = ErrEnded
		return
	}

	if sched.advancing {
		err = ErrAdvancing
		return
	}

	if sched.done {
		report = Report{Cycle: sched.cycle, Done: true}
		return
	}

	if sched.ctx.Err() != nil {
		err = ErrCancelled
		return
	}

	sched.advancing = true
	defer func() { sched.advancing = false }()

	// Controllers only run on their own before the first round.
	err = sched.settle()
	if err != nil {
		return
	}

	// Every controller finished on its own: nothing is left to advance.
	if sched.live == 0 && len(sched.records) > 0 {
		report = sched.report()
		return
	}

	sched.cycle++
	sched.phase++
	for _, rec := range sched.records {
		if rec.state == STATE_PARKED {
			rec.state = STATE_RUNNING
			sched.running++
		}
	}
	sched.cond.Broadcast()

	err = sched.settle()
	if err != nil {
		return
	}

	report = sched.report()

	return
}

// report collects, with the lock held, the terminations not yet reported.
func (sched *Scheduler) report() (report Report) {
	report.Cycle = sched.cycle
	for _, rec := range sched.records {
		if rec.state == STATE_TERMINATED && !rec.reported {
			rec.reported = true
			report.Terminated = append(report.Terminated, Termination{Name: rec.name, Err: rec.err})
		}
	}
	report.Done = sched.live == 0
	sched.done = report.Done

	sched.log.Debug().
		Uint64("cycle", sched.cycle).
		Int("live", sched.live).
		Int("terminated", len(report.Terminated)).
		Msg("scheduler: advance")

	return
}

// End cancels every controller, waits for all of their goroutines to
// return, and joins the failures of every controller. It may be called more
// than once; later calls return the same result.
func (sched *Scheduler) End() error {
	sched.endOnce.Do(func() {
		sched.cancel(ErrCancelled)

		first := sched.group.Wait()

		for _, stop := range sched.stop {
			stop()
		}

		sched.mu.Lock()
		defer sched.mu.Unlock()

		sched.ended = true

		var errs []error
		for _, rec := range sched.records {
			if rec.err != nil && !errors.Is(rec.err, ErrCancelled) {
				errs = append(errs, rec.err)
			}
		}
		sched.failure = errors.Join(errs...)

		sched.log.Debug().Uint64("cycle", sched.cycle).AnErr("first", first).Msg("scheduler: end")
	})

	sched.mu.Lock()
	defer sched.mu.Unlock()

	return sched.failure
}

// Cycle returns the number of completed rounds.
func (sched *Scheduler) Cycle() uint64 {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	return sched.cycle
}

// Live returns the number of controllers that have not terminated.
func (sched *Scheduler) Live() int {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	return sched.live
}

// States iterates over a snapshot of every controller's state, in the order
// the controllers were given to New.
func (sched *Scheduler) States() iter.Seq2[string, State] {
	sched.mu.Lock()
	names := make([]string, len(sched.records))
	states := make([]State, len(sched.records))
	for n, rec := range sched.records {
		names[n] = rec.name
		states[n] = rec.state
	}
	sched.mu.Unlock()

	return func(yield func(name string, state State) bool) {
		for n := range names {
			if !yield(names[n], states[n]) {
				return
			}
		}
	}
}

// String summarizes the scheduler for diagnostics.
func (sched *Scheduler) String() (text string) {
	text = fmt.Sprintf("cycle %d:", sched.Cycle())
	for name, state := range sched.States() {
		text += fmt.Sprintf(" %v=%v", name, state)
	}

	return
}
