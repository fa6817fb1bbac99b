// Package sim provides simulated hardware so the kernel can run without a
// robot attached: a PWM generator, a wandering rangefinder, the character
// display, the status lights, the buzzer and the operator panel.
//
// All types are safe for concurrent use; the TUI reads them while the
// scheduler goroutine writes.
package sim

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/gwillem/robodog/pkg/control"
	"github.com/gwillem/robodog/pkg/monitoring"
	"github.com/gwillem/robodog/pkg/robot"
)

// PWM records the last pulse width written to each channel.
type PWM struct {
	mu     sync.Mutex
	pulses map[int]uint16
	writes int
}

// NewPWM creates an idle PWM generator.
func NewPWM() *PWM {
	return &PWM{pulses: make(map[int]uint16)}
}

// SetPulse implements robot.PWM.
func (p *PWM) SetPulse(channel int, micros uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pulses[channel] = micros
	p.writes++
	return nil
}

// Angles returns the angle each leg was last driven to.
func (p *PWM) Angles() map[robot.Leg]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	angles := make(map[robot.Leg]float64, len(p.pulses))
	for ch, us := range p.pulses {
		angles[robot.Leg(ch)] = float64(us-robot.MinPulse) / float64(robot.MaxPulse-robot.MinPulse) * 180
	}
	return angles
}

// Writes returns the number of pulses written.
func (p *PWM) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Ranger simulates an obstacle drifting in front of the robot. Each
// measurement moves the obstacle by a small random step; a fraction of
// measurements fail with a sensor error code.
type Ranger struct {
	mu       sync.Mutex
	rng      *rand.Rand
	distance float64
	min, max float64
	failRate float64
}

// NewRanger creates a ranger starting at distance cm.
func NewRanger(seed int64, distance float64) *Ranger {
	return &Ranger{
		rng:      rand.New(rand.NewSource(seed)),
		distance: distance,
		min:      3,
		max:      150,
		failRate: 0.05,
	}
}

// SetFailRate sets the fraction of failed measurements.
func (r *Ranger) SetFailRate(f float64) {
	r.mu.Lock()
	r.failRate = f
	r.mu.Unlock()
}

// Move shifts the obstacle by delta cm.
func (r *Ranger) Move(delta float64) {
	r.mu.Lock()
	r.distance = r.clamp(r.distance + delta)
	r.mu.Unlock()
}

// Distance returns the current obstacle distance without measuring.
func (r *Ranger) Distance() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.distance
}

func (r *Ranger) clamp(d float64) float64 {
	return max(r.min, min(r.max, d))
}

// RawMeasureDistance implements avoid.Ranger. Failures return -1 (no echo)
// or -2 (echo stuck).
func (r *Ranger) RawMeasureDistance() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.distance = r.clamp(r.distance + r.rng.NormFloat64()*2)
	if r.rng.Float64() < r.failRate {
		if r.rng.Intn(2) == 0 {
			return -1
		}
		return -2
	}
	return r.distance
}

// Display holds the text of a 4-row character display.
type Display struct {
	mu   sync.Mutex
	rows [4]string
}

// SetLine implements control.Display.
func (d *Display) SetLine(row int, text string) {
	if row < 1 || row > len(d.rows) {
		return
	}
	d.mu.Lock()
	d.rows[row-1] = text
	d.mu.Unlock()
}

// Lines returns the display rows.
func (d *Display) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.rows[:]...)
}

// Indicators tracks which status light is on.
type Indicators struct {
	lit atomic.Int32
}

// Light implements control.Indicators.
func (i *Indicators) Light(n int) {
	i.lit.Store(int32(n))
}

// Lit returns the lit light, 0 for none.
func (i *Indicators) Lit() int {
	return int(i.lit.Load())
}

// Buzzer logs beep patterns instead of sounding them.
type Buzzer struct {
	count atomic.Int64
	last  atomic.Int32
}

// Beep implements control.Buzzer.
func (b *Buzzer) Beep(p control.BeepPattern) {
	b.count.Add(1)
	b.last.Store(int32(p))
	monitoring.Logf("sim: beep %s", p)
}

// Count returns the number of patterns played.
func (b *Buzzer) Count() int64 {
	return b.count.Load()
}

// Last returns the last pattern played.
func (b *Buzzer) Last() control.BeepPattern {
	return control.BeepPattern(b.last.Load())
}

// Panel is the operator panel: four keys and a latched cancel input.
type Panel struct {
	keys   chan control.Key
	cancel atomic.Bool
}

// NewPanel creates a panel buffering up to 8 key presses.
func NewPanel() *Panel {
	return &Panel{keys: make(chan control.Key, 8)}
}

// Press queues a key. Presses beyond the buffer are dropped.
func (p *Panel) Press(k control.Key) {
	select {
	case p.keys <- k:
	default:
	}
}

// Cancel latches the cancel input until the scheduler observes it.
func (p *Panel) Cancel() {
	p.cancel.Store(true)
}

// PollKey implements control.KeyInput.
func (p *Panel) PollKey() (control.Key, bool) {
	select {
	case k := <-p.keys:
		return k, true
	default:
		return "", false
	}
}

// CancelRequested implements waiter.CancelInput. Reading clears the latch.
func (p *Panel) CancelRequested() bool {
	return p.cancel.Swap(false)
}
