package control

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Controller runs a Scheduler at a fixed rate and publishes its state.
type Controller struct {
	sched   *Scheduler
	hz      int
	closers []io.Closer

	mu      sync.Mutex
	running bool
	stateCh chan Snapshot
	logCh   chan string
}

// NewController creates a controller ticking sched hz times per second. The
// closers are closed by Close, in order.
func NewController(sched *Scheduler, hz int, closers ...io.Closer) *Controller {
	if hz <= 0 {
		hz = 50
	}
	c := &Controller{
		sched:   sched,
		hz:      hz,
		closers: closers,
		stateCh: make(chan Snapshot, 1),
		logCh:   make(chan string, 32),
	}
	sched.SetLogger(c.Logf)
	return c
}

// Scheduler returns the controlled scheduler.
func (c *Controller) Scheduler() *Scheduler {
	return c.sched
}

// States returns a channel that receives a snapshot after every tick.
func (c *Controller) States() <-chan Snapshot {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the tick rate.
func (c *Controller) Hz() int {
	return c.hz
}

// Logf timestamps a message and publishes it on Logs. Messages are dropped
// while nobody reads.
func (c *Controller) Logf(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start boots the robot and runs the scheduler until ctx is done. A tick
// that runs a long action delays the next one; ticks are never queued.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.sched.Boot()
	c.Logf("Scheduler started at %d Hz", c.hz)
	c.sendState(c.sched.Snapshot())

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.sched.Tick()
			c.sendState(c.sched.Snapshot())
		}
	}
}

func (c *Controller) sendState(s Snapshot) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.sched.Engine().Stand()
	c.Logf("Scheduler stopped")
}

// Close releases the hardware handed to NewController.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
