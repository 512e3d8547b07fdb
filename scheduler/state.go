package scheduler

// State is the lifecycle state of a controller.
type State int

// STATE_RUNNING covers a controller executing or blocked on a bus;
// STATE_PARKED is waiting at the cycle barrier; STATE_TERMINATED has
// returned from Run.
//
//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING    = State(0) // running
	STATE_PARKED     = State(1) // parked
	STATE_TERMINATED = State(2) // terminated
)
