// Package gait synthesizes timed leg-angle sequences for the quadruped:
// stand, sit, diagonal trot, in-place turns, gestures and diagnostics.
//
// Every action longer than one polling quantum waits through a
// waiter.Waiter, so it can be cancelled. A cancelled action returns
// waiter.Cancelled after putting all legs back in the stand posture.
package gait

import (
	"github.com/gwillem/robodog/pkg/monitoring"
	"github.com/gwillem/robodog/pkg/robot"
	"github.com/gwillem/robodog/pkg/waiter"
)

// Walk speed bounds.
const (
	MinSpeed     = 1
	MaxSpeed     = 10
	DefaultSpeed = 5
)

// Actuator sets a leg channel to an angle in degrees.
type Actuator interface {
	SetChannelAngle(channel int, degrees float64) error
}

// Direction of a walk.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Turn is the direction of an in-place turn.
type Turn int

const (
	Left Turn = iota
	Right
)

func (t Turn) String() string {
	if t == Right {
		return "right"
	}
	return "left"
}

// Action identifies a completed locomotion sequence.
type Action int

const (
	ActionWalk Action = iota
	ActionTurn
)

func (a Action) String() string {
	if a == ActionTurn {
		return "turn"
	}
	return "walk"
}

// Observer is notified when a walk or turn sequence completes and the legs
// are back in the stand posture.
type Observer interface {
	ActionComplete(a Action)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(a Action)

// ActionComplete calls f(a).
func (f ObserverFunc) ActionComplete(a Action) { f(a) }

// Engine produces leg commands. Apart from calibration, speed and the
// observer it holds no state, and it is driven from a single goroutine.
type Engine struct {
	act       Actuator
	wait      *waiter.Waiter
	timing    Timing
	profiles  robot.Calibration
	protected robot.Leg
	speed     int
	observer  Observer
}

// NewEngine creates an engine. Legs missing from cal use the default profile.
func NewEngine(act Actuator, w *waiter.Waiter, cal robot.Calibration, timing Timing) *Engine {
	profiles := robot.DefaultCalibration()
	for leg, p := range cal {
		if leg.Valid() && p.Valid() {
			profiles[leg] = p
		}
	}
	return &Engine{
		act:       act,
		wait:      w,
		timing:    timing,
		profiles:  profiles,
		protected: robot.DefaultProtectedLeg,
		speed:     DefaultSpeed,
	}
}

// SetProtectedLeg selects the leg limited to the protective range.
func (e *Engine) SetProtectedLeg(leg robot.Leg) {
	if leg.Valid() {
		e.protected = leg
	}
}

// ProtectedLeg returns the leg limited to the protective range.
func (e *Engine) ProtectedLeg() robot.Leg {
	return e.protected
}

// Timing returns the engine's timing coefficients.
func (e *Engine) Timing() Timing {
	return e.timing
}

// Limits returns the hard angle limits applied to a leg.
func (e *Engine) Limits(leg robot.Leg) robot.Limits {
	return robot.LimitsFor(leg, e.protected)
}

// drive clamps an angle to the leg's limits and writes it. Write errors are
// logged; the kernel has no position feedback to act on them.
func (e *Engine) drive(leg robot.Leg, degrees float64) {
	a := e.Limits(leg).Clamp(degrees)
	if err := e.act.SetChannelAngle(leg.Channel(), a); err != nil {
		monitoring.Logf("gait: %s: %v", leg, err)
	}
}

// pose writes one angle per leg in front-left, front-right, rear-left,
// rear-right order without pauses.
func (e *Engine) pose(fl, fr, rl, rr float64) {
	e.drive(robot.FrontLeft, fl)
	e.drive(robot.FrontRight, fr)
	e.drive(robot.RearLeft, rl)
	e.drive(robot.RearRight, rr)
}

func (e *Engine) abort() waiter.Result {
	e.Stand()
	return waiter.Cancelled
}

// Stand drives all legs to their calibrated stand angles.
func (e *Engine) Stand() {
	e.pose(
		e.profiles[robot.FrontLeft].Stand,
		e.profiles[robot.FrontRight].Stand,
		e.profiles[robot.RearLeft].Stand,
		e.profiles[robot.RearRight].Stand,
	)
}

// Sit drives all legs to their calibrated sit angles and holds the settle time.
func (e *Engine) Sit() waiter.Result {
	e.pose(
		e.profiles[robot.FrontLeft].Sit,
		e.profiles[robot.FrontRight].Sit,
		e.profiles[robot.RearLeft].Sit,
		e.profiles[robot.RearRight].Sit,
	)
	if e.wait.Wait(e.timing.SitSettle) == waiter.Cancelled {
		return e.abort()
	}
	return waiter.Completed
}

// ResetPose drives all legs to neutral and holds the settle time.
func (e *Engine) ResetPose() waiter.Result {
	n := robot.NeutralAngle
	e.pose(n, n, n, n)
	if e.wait.Wait(e.timing.ResetSettle) == waiter.Cancelled {
		return e.abort()
	}
	return waiter.Completed
}

// TestSweep moves each leg in turn to its minimum, its maximum and neutral,
// holding after each move. The extremes are the hard limits, not the
// calibrated gait range.
func (e *Engine) TestSweep() waiter.Result {
	for _, leg := range robot.AllLegs() {
		limits := e.Limits(leg)
		for _, a := range []float64{limits.Min, limits.Max, robot.NeutralAngle} {
			e.drive(leg, a)
			if e.wait.Wait(e.timing.SweepHold) == waiter.Cancelled {
				return e.abort()
			}
		}
	}
	return waiter.Completed
}

// SetWalkSpeed sets the walk speed. Values outside [1, 10] are ignored and
// reported by returning false.
func (e *Engine) SetWalkSpeed(v int) bool {
	if v < MinSpeed || v > MaxSpeed {
		return false
	}
	e.speed = v
	return true
}

// WalkSpeed returns the current walk speed.
func (e *Engine) WalkSpeed() int {
	return e.speed
}

// AdjustGaitProfile replaces the profile of a leg. An invalid leg or a
// profile with an angle outside [30, 150] is ignored and reported by
// returning false.
func (e *Engine) AdjustGaitProfile(leg robot.Leg, p robot.GaitProfile) bool {
	if !leg.Valid() || !p.Valid() {
		return false
	}
	e.profiles[leg] = p
	return true
}

// GaitProfile returns the profile of a leg; ok is false for an invalid leg.
func (e *Engine) GaitProfile(leg robot.Leg) (p robot.GaitProfile, ok bool) {
	if !leg.Valid() {
		return robot.GaitProfile{}, false
	}
	return e.profiles[leg], true
}

// Calibration returns a copy of all leg profiles.
func (e *Engine) Calibration() robot.Calibration {
	cal := make(robot.Calibration, len(e.profiles))
	for leg, p := range e.profiles {
		cal[leg] = p
	}
	return cal
}

// OnActionComplete registers the observer of walk and turn completion.
// Only one observer is held; registering again replaces it, nil removes it.
func (e *Engine) OnActionComplete(o Observer) {
	e.observer = o
}

func (e *Engine) notify(a Action) {
	if e.observer != nil {
		e.observer.ActionComplete(a)
	}
}
