package scheduler

import (
	"errors"
)

// Termination is a controller that finished during a round.
type Termination struct {
	Name string
	Err  error // nil, ErrCancelled, or an *ErrController.
}

// Failed reports whether the controller ended with a failure other than
// cancellation.
func (term Termination) Failed() bool {
	return term.Err != nil && !errors.Is(term.Err, ErrCancelled)
}

// Report is the outcome of one Advance.
type Report struct {
	Cycle      uint64        // Cycle counter after the round.
	Done       bool          // Every controller has terminated.
	Terminated []Termination // Controllers that terminated during the round.
}

// Err joins the failures of the round, or returns nil.
func (report Report) Err() error {
	var errs []error
	for _, term := range report.Terminated {
		if term.Failed() {
			errs = append(errs, term.Err)
		}
	}

	return errors.Join(errs...)
}
