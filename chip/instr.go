package chip

import (
	"github.com/ezrec/shenzhen/pin"
	"github.com/ezrec/shenzhen/scheduler"
)

// Dgt returns the decimal digit of value at index: 0 for ones, 1 for tens,
// 2 for hundreds. Any other index yields 0.
func Dgt(value int, index int) int {
	switch index {
	case 0:
		return value % 10
	case 1:
		return (value / 10) % 10
	case 2:
		return value / 100
	}

	return 0
}

// Dst returns value with the decimal digit at index replaced by the ones
// digit of digit. Any other index leaves value unchanged.
func Dst(value int, index int, digit int) int {
	digit %= 10

	switch index {
	case 0:
		return (value/10)*10 + digit
	case 1:
		return (value/100)*100 + digit*10 + value%10
	case 2:
		return digit*100 + value%100
	}

	return value
}

// Gen drives p high for on cycles, then low for off cycles.
func Gen(ctx *scheduler.Context, p *pin.Pin, on int, off int) (err error) {
	if on > 0 {
		p.Set(pin.PIN_HIGH)
		err = ctx.Sleep(on)
		if err != nil {
			return
		}
	}

	p.Set(pin.PIN_LOW)

	if off > 0 {
		err = ctx.Sleep(off)
	}

	return
}
