// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package device provides prebuilt components that attach to buses.
//
// None of them runs a goroutine of its own. An Input is an xbus.Source that
// hands queued values to readers. Output and Expander are xbus.Sinks that see
// every write. A Memory is both, on its address and data buses.
package device
