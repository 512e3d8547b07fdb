// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package scheduler runs controllers in lockstep cycles.
//
// Every controller runs on its own goroutine from the moment the Scheduler is
// created. A controller executes freely until it calls one of the suspension
// primitives: Context.Tick (or Context.Sleep) parks it at the cycle barrier,
// and the xbus Read and Sleep calls block on a bus.
//
// Advance runs one round. It waits until no controller is running (every
// controller is parked or terminated), increments the cycle counter, releases
// the parked controllers, and waits again until none is running. The Report
// lists the controllers that terminated during the round and whether all of
// them have now terminated.
//
// End cancels the Context shared by every controller. Every blocked
// primitive, at the barrier or on any bus waited on through that Context,
// wakes with ErrCancelled. End then joins every goroutine.
//
// Controllers must return the error of a failed primitive immediately; End
// relies on it to make progress. A controller stuck on a bus that nobody will
// write keeps Advance waiting; there is no deadlock detection, but End still
// recovers the simulation.
package scheduler
