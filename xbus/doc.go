// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package xbus implements the synchronized shared register that controllers
// use to exchange values.
//
// An XBus holds a single value and a generation counter that increases by
// exactly one on every write. Each endpoint that reads or waits on a bus keeps
// its own Cursor: the last generation it observed. A read blocks until the
// generation differs from the cursor, returns the latest value and moves the
// cursor forward, so an endpoint never sees the same write twice and never
// sees a value older than one it already consumed. Writes that land between
// two reads of the same endpoint coalesce to the latest value.
//
// Every blocking call takes a context.Context. Cancelling the context wakes
// the call, which then fails with the context's cancellation cause.
//
// Concurrent writers are serialized by the bus lock; whichever acquires it
// first gets the lower generation. No other ordering between writers is
// provided, and none exists between different buses.
package xbus
