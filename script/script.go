// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package script runs controllers written in Starlark.
//
// A program defines execute(), which is called over and over until the
// simulation ends. Buses and pins are referred to by name:
//
//	def execute():
//	    regs.acc = read("in")
//	    write("out", regs.acc * 2)
//	    slp(1)
//
// Builtins: slp(n), slx(bus), read(bus), write(bus, v), get(pin),
// set(pin, v), dgt(v, i), dst(v, i, d), cycle(), and the `regs` object with
// integer fields acc and dat.
package script

import (
	"context"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/shenzhen/chip"
	"github.com/ezrec/shenzhen/pin"
	"github.com/ezrec/shenzhen/scheduler"
	"github.com/ezrec/shenzhen/xbus"
)

const (
	EXECUTE_FUNCTION = "execute" // Name of the function run every loop.

	localContext    = "shenzhen.context"
	localController = "shenzhen.controller"
)

// Env is what a program is wired to.
type Env struct {
	Buses  map[string]xbus.XBus
	Pins   map[string]*pin.Pin
	Logger *zerolog.Logger // Receives print() output, if set.
}

// Controller is a scheduler.Controller running a Starlark program.
type Controller struct {
	*chip.Chip

	program *starlark.Program
	ports   map[string]*xbus.Port
	pins    map[string]*pin.Pin
	logger  zerolog.Logger

	thread  *starlark.Thread
	execute starlark.Callable
}

var _ scheduler.Controller = (*Controller)(nil)

var fileOptions = syntax.FileOptions{
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// New compiles a program. Every bus in env is attached when the controller
// is created, so writes made before that are not seen by the program.
func New(name string, filename string, source any, env Env) (ctrl *Controller, err error) {
	file, err := fileOptions.Parse(filename, source, 0)
	if err != nil {
		return
	}

	if !defines(file, EXECUTE_FUNCTION) {
		err = ErrExecuteMissing
		return
	}

	program, err := starlark.FileProgram(file, predeclared)
	if err != nil {
		return
	}

	ctrl = &Controller{
		program: program,
		ports:   make(map[string]*xbus.Port, len(env.Buses)),
		pins:    maps.Clone(env.Pins),
		logger:  zerolog.Nop(),
	}
	if env.Logger != nil {
		ctrl.logger = *env.Logger
	}
	for busName, bus := range env.Buses {
		ctrl.ports[busName] = bus.Attach()
	}
	ctrl.Chip = chip.Loop(name, ctrl.step)

	return
}

// defines reports whether a file has a top-level def of name.
func defines(file *syntax.File, name string) bool {
	return slices.ContainsFunc(file.Stmts, func(stmt syntax.Stmt) bool {
		def, ok := stmt.(*syntax.DefStmt)
		return ok && def.Name.Name == name
	})
}

// Run initializes the program globals, then calls execute() until a
// suspension primitive fails.
func (ctrl *Controller) Run(ctx *scheduler.Context) (err error) {
	ctrl.thread = &starlark.Thread{
		Name: ctrl.Name(),
		Print: func(_ *starlark.Thread, msg string) {
			ctrl.logger.Info().Str("controller", ctrl.Name()).Uint64("cycle", ctx.Cycle()).Msg(msg)
		},
	}
	ctrl.thread.SetLocal(localContext, ctx)
	ctrl.thread.SetLocal(localController, ctrl)

	stop := context.AfterFunc(ctx, func() {
		ctrl.thread.Cancel(scheduler.ErrCancelled.Error())
	})
	defer stop()

	env := maps.Clone(builtins)
	env["regs"] = &regsValue{regs: &ctrl.Chip.Regs}

	globals, err := ctrl.program.Init(ctrl.thread, env)
	if err != nil {
		err = ctrl.fault(ctx, err)
		return
	}

	execute, ok := globals[EXECUTE_FUNCTION].(starlark.Callable)
	if !ok {
		err = ErrExecuteInvalid
		return
	}
	ctrl.execute = execute

	return ctrl.Chip.Run(ctx)
}

// step is the chip program: one call of execute().
func (ctrl *Controller) step(ctx *scheduler.Context, regs *chip.Regs) (err error) {
	_, err = starlark.Call(ctrl.thread, ctrl.execute, nil, nil)
	if err != nil {
		err = ctrl.fault(ctx, err)
	}

	return
}

// fault maps an interrupted evaluation back to cancellation.
func (ctrl *Controller) fault(ctx *scheduler.Context, err error) error {
	if ctx.Err() != nil {
		return scheduler.ErrCancelled
	}

	return err
}
