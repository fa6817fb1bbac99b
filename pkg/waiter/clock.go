package waiter

import (
	"sync"
	"time"
)

// Clock is the time source behind every wait. Tests substitute FakeClock so
// that timed actions run instantly and deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Sleep pauses the current goroutine for at least the duration d.
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// FakeClock is a manually controlled clock. Sleep advances the clock
// instantly and records the requested duration.
type FakeClock struct {
	mu     sync.Mutex
	start  time.Time
	now    time.Time
	sleeps []time.Duration
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{start: t, now: t}
}

// Now returns the mocked current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d and records it.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// Elapsed returns the total time slept since the clock was created.
func (c *FakeClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// Sleeps returns all recorded sleep durations.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}

// CancelAt is a CancelInput that asserts once the clock's elapsed time
// reaches At. It fires a single time, like a button press that is consumed.
type CancelAt struct {
	Clock *FakeClock
	At    time.Duration

	fired bool
}

// CancelRequested reports whether the cancel point has been reached.
func (c *CancelAt) CancelRequested() bool {
	if c.fired || c.Clock.Elapsed() < c.At {
		return false
	}
	c.fired = true
	return true
}

// Fired reports whether the cancellation has been observed.
func (c *CancelAt) Fired() bool { return c.fired }
