package gait

import (
	"fmt"
	"time"

	"github.com/gwillem/robodog/pkg/robot"
	"github.com/gwillem/robodog/pkg/waiter"
)

// Gesture is a fixed one-shot posture sequence.
type Gesture int

const (
	Hello Gesture = iota
	SitDown
	Shake
)

var gestureNames = map[Gesture]string{
	Hello:   "hello",
	SitDown: "sit",
	Shake:   "shake",
}

func (g Gesture) String() string {
	if name, ok := gestureNames[g]; ok {
		return name
	}
	return fmt.Sprintf("gesture(%d)", int(g))
}

// Gesture hold times.
const (
	waveHold  = 300 * time.Millisecond
	sitHold   = 1000 * time.Millisecond
	shakeHold = 150 * time.Millisecond
)

// Gesture runs g. Unknown gestures complete immediately without motion.
func (e *Engine) Gesture(g Gesture) waiter.Result {
	switch g {
	case Hello:
		return e.Hello()
	case SitDown:
		return e.SitDown()
	case Shake:
		return e.Shake()
	}
	return waiter.Completed
}

// Hello waves the front-right leg twice and returns to stand.
func (e *Engine) Hello() waiter.Result {
	for i := 0; i < 2; i++ {
		for _, a := range []float64{45, robot.NeutralAngle} {
			e.drive(robot.FrontRight, a)
			if e.wait.Wait(waveHold) == waiter.Cancelled {
				return e.abort()
			}
		}
	}
	e.Stand()
	return waiter.Completed
}

// SitDown crouches into a fixed sitting pose and holds it. Unlike Sit the
// angles do not come from the gait profiles, and the robot stays seated.
func (e *Engine) SitDown() waiter.Result {
	e.pose(60, 120, 120, 60)
	if e.wait.Wait(sitHold) == waiter.Cancelled {
		return e.abort()
	}
	return waiter.Completed
}

// Shake rocks the body side to side three times and returns to stand.
func (e *Engine) Shake() waiter.Result {
	for i := 0; i < 3; i++ {
		e.pose(95, 85, 95, 85)
		if e.wait.Wait(shakeHold) == waiter.Cancelled {
			return e.abort()
		}
		e.pose(85, 95, 85, 95)
		if e.wait.Wait(shakeHold) == waiter.Cancelled {
			return e.abort()
		}
	}
	e.Stand()
	return waiter.Completed
}

// GestureDuration returns the uninterrupted duration of g.
func GestureDuration(g Gesture) time.Duration {
	switch g {
	case Hello:
		return 4 * waveHold
	case SitDown:
		return sitHold
	case Shake:
		return 6 * shakeHold
	}
	return 0
}
