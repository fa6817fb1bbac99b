package avoid

import (
	"time"

	"github.com/gwillem/robodog/pkg/waiter"
)

// Ranger is a raw distance sensor. Negative values signal a failed
// measurement.
type Ranger interface {
	RawMeasureDistance() float64
}

// RangerFunc adapts a function to Ranger.
type RangerFunc func() float64

// RawMeasureDistance calls f.
func (f RangerFunc) RawMeasureDistance() float64 { return f() }

const (
	// DefaultAttempts is the number of raw reads before giving up.
	DefaultAttempts = 3

	// DefaultRetryDelay is the pause between failed attempts.
	DefaultRetryDelay = 50 * time.Millisecond
)

// Reader wraps a Ranger with validation and retries.
type Reader struct {
	ranger   Ranger
	wait     *waiter.Waiter
	delay    time.Duration
	attempts int
}

// NewReader creates a Reader. A non-positive delay selects DefaultRetryDelay.
func NewReader(r Ranger, w *waiter.Waiter, delay time.Duration) *Reader {
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return &Reader{
		ranger:   r,
		wait:     w,
		delay:    delay,
		attempts: DefaultAttempts,
	}
}

// Valid reports whether a raw value is a usable distance.
func Valid(d float64) bool {
	return d > 0 && d < MaxDistance
}

// ReadDistanceSafe takes up to three raw readings and returns the first valid
// one. Failed attempts are followed by a cancellable retry delay, except the
// last. If the delay is cancelled the read stops with waiter.Cancelled.
func (r *Reader) ReadDistanceSafe() (Reading, waiter.Result) {
	for i := 0; i < r.attempts; i++ {
		if d := r.ranger.RawMeasureDistance(); Valid(d) {
			return Reading{Distance: d, OK: true}, waiter.Completed
		}
		if i == r.attempts-1 {
			break
		}
		if r.wait.Wait(r.delay) == waiter.Cancelled {
			return Reading{}, waiter.Cancelled
		}
	}
	return Reading{}, waiter.Completed
}
