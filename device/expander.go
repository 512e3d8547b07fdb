package device

import (
	"github.com/ezrec/shenzhen/pin"
	"github.com/ezrec/shenzhen/xbus"
)

// Expander converts between a bus value and three simple I/O pins, one per
// decimal digit: p0 ones, p1 tens, p2 hundreds. Any pin may be nil.
type Expander struct {
	Pins [3]*pin.Pin
}

var _ xbus.Sink = (*Expander)(nil)

// NewExpander creates an expander and the bus that drives it.
func NewExpander(p0, p1, p2 *pin.Pin) (exp *Expander, bus xbus.XBus) {
	exp = &Expander{Pins: [3]*pin.Pin{p0, p1, p2}}
	bus = xbus.New()
	bus.Connect(exp)

	return
}

// Accept sets each pin high if the matching digit of value is nonzero. The
// sign of value is ignored.
func (exp *Expander) Accept(value int) {
	if value < 0 {
		value = -value
	}

	digits := [3]bool{
		value%10 >= 1,
		value%100 >= 10,
		value >= 100,
	}

	for n, p := range exp.Pins {
		if p == nil {
			continue
		}
		if digits[n] {
			p.Set(pin.PIN_HIGH)
		} else {
			p.Set(pin.PIN_LOW)
		}
	}
}

// Value reads the pins back as a bus value: each digit is 1 if its pin is
// high, else 0.
func (exp *Expander) Value() (value int) {
	scale := 1
	for _, p := range exp.Pins {
		if p != nil && p.High() {
			value += scale
		}
		scale *= 10
	}

	return
}
