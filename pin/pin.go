// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package pin implements the simple I/O register shared between controllers.
//
// A Pin holds one integer. Writes overwrite it, reads see whatever was last
// written. There is no change tracking and no blocking: a reader that needs
// to observe every value must use an xbus.XBus instead. The value is kept in
// an atomic only so that concurrent access is well defined; no ordering
// between pins or with the cycle barrier is implied.
package pin

import (
	"sync/atomic"
)

const (
	PIN_LOW  = 0   // Level of a pin that is off.
	PIN_HIGH = 100 // Level of a pin that is fully on.
)

// Pin is a shared simple I/O register. Share it by pointer.
type Pin struct {
	value atomic.Int64
}

// New creates a pin holding initial, or zero.
func New(initial ...int) (p *Pin) {
	p = &Pin{}
	if len(initial) > 0 {
		p.Set(initial[0])
	}

	return
}

// Get returns the last value set.
func (p *Pin) Get() int {
	return int(p.value.Load())
}

// Set overwrites the value.
func (p *Pin) Set(value int) {
	p.value.Store(int64(value))
}

// High reports whether the pin reads as logically on.
func (p *Pin) High() bool {
	return p.Get() >= PIN_HIGH/2
}
