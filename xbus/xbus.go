// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package xbus

import (
	"context"
	"sync"
)

// Cursor is the last generation an endpoint has observed on a bus.
// The zero Cursor has observed nothing.
type Cursor uint64

// Sink is notified of every value written to a bus it is connected to.
// Accept is called with the bus locked, in generation order, and must not
// call back into the bus.
type Sink interface {
	Accept(value int)
}

// Source supplies the value of a bus on demand. Ready reports whether a
// value can be provided; Provide is called once per Read, only after Ready
// has returned true. Both are called with the bus locked and must not call
// back into the bus.
type Source interface {
	Ready() bool
	Provide() int
}

// slot is the state shared by every handle of one bus.
type slot struct {
	mu         sync.Mutex
	cond       *sync.Cond
	value      int
	valid      bool
	generation uint64
	sinks      []Sink
	source     Source
}

// XBus is a handle to a shared register. Copies of a handle refer to the same
// register; the register lives as long as any handle to it.
type XBus struct {
	*slot
}

// New creates an empty bus at generation zero.
func New() (bus XBus) {
	bus.slot = &slot{}
	bus.slot.cond = sync.NewCond(&bus.slot.mu)
	return
}

// Clone returns another handle to the same register.
func (bus XBus) Clone() XBus {
	return bus
}

// Valid reports whether the handle refers to a constructed bus.
func (bus XBus) Valid() bool {
	return bus.slot != nil
}

// Same reports whether two handles share the same register.
func (bus XBus) Same(other XBus) bool {
	return bus.slot == other.slot
}

// Generation returns the number of writes recorded so far.
func (bus XBus) Generation() uint64 {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	return bus.generation
}

// Value returns the most recently written value, and false if nothing has
// been written yet. It does not affect any cursor.
func (bus XBus) Value() (value int, ok bool) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	return bus.value, bus.valid
}

// Connect attaches a passive sink to the bus.
func (bus XBus) Connect(sink Sink) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.sinks = append(bus.sinks, sink)
}

// Supply makes source the provider of every Read on the bus. Reads and
// sleeps on a supplied bus wait for the source to be ready instead of for a
// write, and writes to it reach only its sinks. A later call replaces the
// source.
func (bus XBus) Supply(source Source) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.source = source
	bus.cond.Broadcast()
}

// Notify wakes every waiter on the bus to check its source again. A source
// calls it, without holding its own lock, when it becomes ready.
func (bus XBus) Notify() {
	bus.wake()
}

// Ready reports whether a Read with cursor would return without waiting.
func (bus XBus) Ready(cursor Cursor) bool {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	return bus.ready(cursor)
}

// Attach creates an endpoint whose cursor starts at the current generation,
// so only writes made after attaching are observed.
func (bus XBus) Attach() *Port {
	return &Port{
		Bus:    bus,
		Cursor: Cursor(bus.Generation()),
	}
}

// Write records value as the next generation and wakes every waiter.
// It never waits for a reader.
func (bus XBus) Write(ctx context.Context, value int) (err error) {
	if bus.slot == nil {
		err = ErrBusNil
		return
	}

	if ctx.Err() != nil {
		err = context.Cause(ctx)
		return
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.value = value
	bus.valid = true
	bus.generation++

	for _, sink := range bus.sinks {
		sink.Accept(value)
	}

	bus.cond.Broadcast()

	return
}

// Read waits until the bus generation differs from the cursor, then returns
// the current value and moves the cursor to the current generation. On a
// supplied bus it waits for the source instead and returns its value.
func (bus XBus) Read(ctx context.Context, cursor *Cursor) (value int, err error) {
	if bus.slot == nil {
		err = ErrBusNil
		return
	}

	stop := context.AfterFunc(ctx, bus.wake)
	defer stop()

	bus.mu.Lock()
	defer bus.mu.Unlock()

	err = bus.wait(ctx, *cursor)
	if err != nil {
		return
	}

	if bus.source != nil {
		value = bus.source.Provide()
	} else {
		value = bus.value
	}
	*cursor = Cursor(bus.generation)

	return
}

// Sleep waits until the bus generation differs from cursor and returns the
// new generation. No value is consumed; the caller decides whether to move
// its cursor.
func (bus XBus) Sleep(ctx context.Context, cursor Cursor) (generation uint64, err error) {
	if bus.slot == nil {
		err = ErrBusNil
		return
	}

	stop := context.AfterFunc(ctx, bus.wake)
	defer stop()

	bus.mu.Lock()
	defer bus.mu.Unlock()

	err = bus.wait(ctx, cursor)
	if err != nil {
		return
	}

	generation = bus.generation

	return
}

// wait blocks, with the lock held, until the bus is ready for cursor or ctx
// is done. Cancellation is checked before every wait and after every wake.
func (slot *slot) wait(ctx context.Context, cursor Cursor) error {
	for {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if slot.ready(cursor) {
			return nil
		}
		slot.cond.Wait()
	}
}

// ready reports, with the lock held, whether the source can provide a value
// or, on a bus without one, whether the generation has moved past cursor.
func (slot *slot) ready(cursor Cursor) bool {
	if slot.source != nil {
		return slot.source.Ready()
	}

	return slot.generation != uint64(cursor)
}

// wake broadcasts to all waiters. Taking the lock orders the broadcast after
// any waiter that has checked ctx but not yet started waiting.
func (slot *slot) wake() {
	slot.mu.Lock()
	slot.cond.Broadcast()
	slot.mu.Unlock()
}
