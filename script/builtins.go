package script

import (
	"go.starlark.net/starlark"

	"github.com/ezrec/shenzhen/chip"
	"github.com/ezrec/shenzhen/pin"
	"github.com/ezrec/shenzhen/scheduler"
	"github.com/ezrec/shenzhen/xbus"
)

var builtins = starlark.StringDict{
	"slp":   starlark.NewBuiltin("slp", builtinSlp),
	"slx":   starlark.NewBuiltin("slx", builtinSlx),
	"read":  starlark.NewBuiltin("read", builtinRead),
	"write": starlark.NewBuiltin("write", builtinWrite),
	"get":   starlark.NewBuiltin("get", builtinGet),
	"set":   starlark.NewBuiltin("set", builtinSet),
	"dgt":   starlark.NewBuiltin("dgt", builtinDgt),
	"dst":   starlark.NewBuiltin("dst", builtinDst),
	"cycle": starlark.NewBuiltin("cycle", builtinCycle),
}

// predeclared reports the names known to every program. regs is bound per
// controller.
func predeclared(name string) bool {
	return name == "regs" || builtins.Has(name)
}

// current returns the controller a builtin is running for.
func current(thread *starlark.Thread) (ctrl *Controller, ctx *scheduler.Context) {
	ctx = thread.Local(localContext).(*scheduler.Context)
	ctrl = thread.Local(localController).(*Controller)
	return
}

func (ctrl *Controller) port(name string) (port *xbus.Port, err error) {
	port, ok := ctrl.ports[name]
	if !ok {
		err = ErrBusUnknown(name)
	}
	return
}

func (ctrl *Controller) pin(name string) (p *pin.Pin, err error) {
	p, ok := ctrl.pins[name]
	if !ok {
		err = ErrPinUnknown(name)
	}
	return
}

func builtinSlp(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	steps := 1
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &steps); err != nil {
		return nil, err
	}

	_, ctx := current(thread)
	if err := ctx.Sleep(steps); err != nil {
		return nil, err
	}

	return starlark.None, nil
}

func builtinSlx(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "bus", &name); err != nil {
		return nil, err
	}

	ctrl, ctx := current(thread)
	port, err := ctrl.port(name)
	if err != nil {
		return nil, err
	}

	if err := port.Sleep(ctx); err != nil {
		return nil, err
	}

	return starlark.None, nil
}

func builtinRead(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "bus", &name); err != nil {
		return nil, err
	}

	ctrl, ctx := current(thread)
	port, err := ctrl.port(name)
	if err != nil {
		return nil, err
	}

	value, err := port.Read(ctx)
	if err != nil {
		return nil, err
	}

	return starlark.MakeInt(value), nil
}

func builtinWrite(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "bus", &name, "value", &value); err != nil {
		return nil, err
	}

	ctrl, ctx := current(thread)
	port, err := ctrl.port(name)
	if err != nil {
		return nil, err
	}

	if err := port.Write(ctx, value); err != nil {
		return nil, err
	}

	return starlark.None, nil
}

func builtinGet(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pin", &name); err != nil {
		return nil, err
	}

	ctrl, _ := current(thread)
	p, err := ctrl.pin(name)
	if err != nil {
		return nil, err
	}

	return starlark.MakeInt(p.Get()), nil
}

func builtinSet(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pin", &name, "value", &value); err != nil {
		return nil, err
	}

	ctrl, _ := current(thread)
	p, err := ctrl.pin(name)
	if err != nil {
		return nil, err
	}

	p.Set(value)

	return starlark.None, nil
}

func builtinDgt(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value, index int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &value, "index", &index); err != nil {
		return nil, err
	}

	return starlark.MakeInt(chip.Dgt(value, index)), nil
}

func builtinDst(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value, index, digit int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &value, "index", &index, "digit", &digit); err != nil {
		return nil, err
	}

	return starlark.MakeInt(chip.Dst(value, index, digit)), nil
}

func builtinCycle(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}

	_, ctx := current(thread)

	return starlark.MakeUint64(ctx.Cycle()), nil
}
