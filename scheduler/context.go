package scheduler

import (
	"context"
)

// Context is given to a running controller. It is a context.Context that is
// cancelled by Scheduler.End, so it is passed directly to xbus calls, and it
// carries the tick-sleep primitive. A Context belongs to one controller and
// must not be used from another goroutine.
type Context struct {
	context.Context

	sched *Scheduler
	rec   *record
}

// Name returns the name of the controller.
func (ctx *Context) Name() string {
	return ctx.rec.name
}

// Cycle returns the current cycle number.
func (ctx *Context) Cycle() uint64 {
	return ctx.sched.Cycle()
}

// Tick parks the controller at the cycle barrier until the next round.
func (ctx *Context) Tick() error {
	return ctx.sched.park(ctx.rec)
}

// Sleep parks the controller for the given number of rounds. A count of
// zero or less only checks for cancellation.
func (ctx *Context) Sleep(steps int) (err error) {
	if steps <= 0 {
		if ctx.Err() != nil {
			err = ErrCancelled
		}
		return
	}

	for range steps {
		err = ctx.Tick()
		if err != nil {
			return
		}
	}

	return
}
