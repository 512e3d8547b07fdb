// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package chip provides the pieces controller code is written with: the
// register set, adapters that turn a program body into a
// scheduler.Controller, and the game's digit and pulse instructions.
package chip

import (
	"github.com/ezrec/shenzhen/scheduler"
)

// Regs is the register set of a controller. It persists across repeated
// executions of the program body.
type Regs struct {
	Acc int
	Dat int
}

// Program is the body of a controller.
type Program func(ctx *scheduler.Context, regs *Regs) error

// Chip is a controller running a Program.
type Chip struct {
	Regs Regs // Register state; only inspect after the scheduler has ended.

	name    string
	program Program
	once    bool
}

var _ scheduler.Controller = (*Chip)(nil)

// Loop creates a controller that executes program over and over, as the game
// does, until a suspension primitive fails.
func Loop(name string, program Program) *Chip {
	return &Chip{name: name, program: program}
}

// Once creates a controller that executes program a single time.
func Once(name string, program Program) *Chip {
	return &Chip{name: name, program: program, once: true}
}

// Name returns the controller name.
func (chip *Chip) Name() string {
	return chip.name
}

// Run executes the program.
func (chip *Chip) Run(ctx *scheduler.Context) (err error) {
	for {
		err = chip.program(ctx, &chip.Regs)
		if err != nil || chip.once {
			return
		}

		// A body that never suspends still has to notice End.
		if ctx.Err() != nil {
			err = scheduler.ErrCancelled
			return
		}
	}
}
