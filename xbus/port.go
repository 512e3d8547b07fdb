package xbus

import (
	"context"
)

// Port is one endpoint's attachment to a bus: the bus handle plus that
// endpoint's private cursor. A Port must not be shared between controllers.
type Port struct {
	Bus    XBus
	Cursor Cursor
}

// Read returns the next unseen value, waiting for a write if needed.
func (port *Port) Read(ctx context.Context) (int, error) {
	return port.Bus.Read(ctx, &port.Cursor)
}

// Sleep waits until a Read on this port would not wait. The cursor is left
// alone, so a following Read returns the write that woke it.
func (port *Port) Sleep(ctx context.Context) (err error) {
	_, err = port.Bus.Sleep(ctx, port.Cursor)
	return
}

// Pending reports whether a Read on this port would return without waiting.
func (port *Port) Pending() bool {
	return port.Bus.Ready(port.Cursor)
}

// Write writes a value to the bus. The port's own write is not hidden from
// its cursor: a later Read on this port returns it like any other write.
func (port *Port) Write(ctx context.Context, value int) error {
	return port.Bus.Write(ctx, value)
}
