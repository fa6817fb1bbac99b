// Package waiter implements the cooperative wait used by every timed action.
//
// There is one thread of control. A long action never sleeps for more than one
// quantum at a time; between quanta it samples the cancellation input, and on
// assertion it runs the cancellation hook and returns Cancelled without waiting
// out the rest of the duration.
package waiter

import "time"

// DefaultQuantum is the polling granularity of Wait.
const DefaultQuantum = 20 * time.Millisecond

// Result is the outcome of a wait or of an action built from waits.
type Result int

const (
	Completed Result = iota
	Cancelled
)

func (r Result) String() string {
	if r == Cancelled {
		return "cancelled"
	}
	return "completed"
}

// CancelInput is the discrete "return to idle" control.
type CancelInput interface {
	// CancelRequested reports whether cancellation is asserted. Inputs that
	// latch a button press clear the latch when they report it.
	CancelRequested() bool
}

// Waiter splits waits into quanta and checks for cancellation between them.
type Waiter struct {
	clock    Clock
	cancel   CancelInput
	quantum  time.Duration
	onCancel func()
}

// New creates a Waiter. A nil cancel input never cancels; a non-positive
// quantum selects DefaultQuantum.
func New(clock Clock, cancel CancelInput, quantum time.Duration) *Waiter {
	if clock == nil {
		clock = RealClock{}
	}
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	return &Waiter{
		clock:   clock,
		cancel:  cancel,
		quantum: quantum,
	}
}

// OnCancel sets the cancellation side effect. Only one hook is held;
// calling OnCancel again replaces it.
func (w *Waiter) OnCancel(fn func()) {
	w.onCancel = fn
}

// Quantum returns the polling granularity.
func (w *Waiter) Quantum() time.Duration {
	return w.quantum
}

// Clock returns the waiter's time source.
func (w *Waiter) Clock() Clock {
	return w.clock
}

// Wait pauses for d. The elapsed time is k*quantum when cancellation is seen
// after the k-th full quantum, and exactly d otherwise; it never exceeds d.
func (w *Waiter) Wait(d time.Duration) Result {
	if d <= 0 {
		return Completed
	}

	n := d / w.quantum
	rem := d % w.quantum

	for i := time.Duration(0); i < n; i++ {
		w.clock.Sleep(w.quantum)
		if w.cancel != nil && w.cancel.CancelRequested() {
			if w.onCancel != nil {
				w.onCancel()
			}
			return Cancelled
		}
	}

	if rem > 0 {
		w.clock.Sleep(rem)
	}
	return Completed
}
