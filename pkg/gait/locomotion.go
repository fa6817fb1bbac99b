package gait

import (
	"github.com/gwillem/robodog/pkg/robot"
	"github.com/gwillem/robodog/pkg/waiter"
)

const (
	walkPhases = 4
	turnPhases = 2
)

type angleOf func(robot.GaitProfile) float64

var (
	liftHigh angleOf = func(p robot.GaitProfile) float64 { return p.LiftHigh }
	liftLow  angleOf = func(p robot.GaitProfile) float64 { return p.LiftLow }
	pushHigh angleOf = func(p robot.GaitProfile) float64 { return p.PushHigh }
	pushLow  angleOf = func(p robot.GaitProfile) float64 { return p.PushLow }
)

// walkOrder is the order of leg writes within a phase.
var walkOrder = [4]robot.Leg{robot.FrontLeft, robot.FrontRight, robot.RearLeft, robot.RearRight}

// trot lists, per phase, the profile angle of each leg in walkOrder.
// Phases 1-2 lift and swing the FL/RR diagonal while FR/RL push; phases 3-4
// swap the diagonals.
var trot = [walkPhases][4]angleOf{
	{liftHigh, pushLow, pushLow, liftHigh},
	{liftLow, pushHigh, pushHigh, liftLow},
	{pushLow, liftHigh, liftHigh, pushLow},
	{pushHigh, liftLow, liftLow, pushHigh},
}

// reverse swaps high and low so each swing runs the other way.
func reverse(f angleOf) angleOf {
	return func(p robot.GaitProfile) float64 {
		swapped := robot.GaitProfile{
			LiftHigh: p.LiftLow,
			LiftLow:  p.LiftHigh,
			PushHigh: p.PushLow,
			PushLow:  p.PushHigh,
		}
		return f(swapped)
	}
}

// Walk executes steps cycles of the four-phase diagonal trot and returns to
// stand. Within a phase each leg write except the last is followed by the
// stagger pause; the phase then holds for the speed-dependent walk hold.
func (e *Engine) Walk(dir Direction, steps int) waiter.Result {
	hold := e.timing.WalkHold(e.speed)

	for step := 0; step < steps; step++ {
		for _, phase := range trot {
			for i, leg := range walkOrder {
				f := phase[i]
				if dir == Backward {
					f = reverse(f)
				}
				e.drive(leg, f(e.profiles[leg]))

				if i < len(walkOrder)-1 && e.timing.Stagger > 0 {
					if e.wait.Wait(e.timing.Stagger) == waiter.Cancelled {
						return e.abort()
					}
				}
			}
			if e.wait.Wait(hold) == waiter.Cancelled {
				return e.abort()
			}
		}
	}

	e.Stand()
	e.notify(ActionWalk)
	return waiter.Completed
}

// Turn executes steps cycles of the two-phase in-place turn and returns to
// stand. The leading side swings forward and the lagging side backward by a
// fixed excursion from neutral; phase two reverses them.
func (e *Engine) Turn(t Turn, steps int) waiter.Result {
	hold := e.timing.TurnHold(e.speed)
	back := robot.NeutralAngle - e.timing.TurnSwing
	fwd := robot.NeutralAngle + e.timing.TurnSwing

	// Left turn: left legs back, right legs forward first.
	left, right := back, fwd
	if t == Right {
		left, right = fwd, back
	}

	for step := 0; step < steps; step++ {
		e.pose(left, right, left, right)
		if e.wait.Wait(hold) == waiter.Cancelled {
			return e.abort()
		}

		e.pose(right, left, right, left)
		if e.wait.Wait(hold) == waiter.Cancelled {
			return e.abort()
		}
	}

	e.Stand()
	e.notify(ActionTurn)
	return waiter.Completed
}
