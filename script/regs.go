package script

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/ezrec/shenzhen/chip"
)

// regsValue exposes a controller's registers to Starlark as `regs.acc` and
// `regs.dat`.
type regsValue struct {
	regs *chip.Regs
}

var _ starlark.HasSetField = (*regsValue)(nil)

func (rv *regsValue) String() string {
	return fmt.Sprintf("regs(acc=%d, dat=%d)", rv.regs.Acc, rv.regs.Dat)
}

func (rv *regsValue) Type() string {
	return "regs"
}

// Freeze is a no-op: registers stay writable for the life of the controller.
func (rv *regsValue) Freeze() {}

func (rv *regsValue) Truth() starlark.Bool {
	return starlark.True
}

func (rv *regsValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: regs")
}

func (rv *regsValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "acc":
		return starlark.MakeInt(rv.regs.Acc), nil
	case "dat":
		return starlark.MakeInt(rv.regs.Dat), nil
	}

	return nil, nil
}

func (rv *regsValue) AttrNames() []string {
	return []string{"acc", "dat"}
}

func (rv *regsValue) SetField(name string, value starlark.Value) (err error) {
	var target *int
	switch name {
	case "acc":
		target = &rv.regs.Acc
	case "dat":
		target = &rv.regs.Dat
	default:
		return starlark.NoSuchAttrError(fmt.Sprintf("regs has no .%s field", name))
	}

	var n int
	err = starlark.AsInt(value, &n)
	if err != nil {
		return
	}
	*target = n

	return
}
