package avoid

import (
	"time"

	"github.com/gwillem/robodog/pkg/gait"
	"github.com/gwillem/robodog/pkg/waiter"
)

// DefaultLongPause is the Warning hold.
const DefaultLongPause = 800 * time.Millisecond

// Mover is the part of the gait engine the policy drives.
type Mover interface {
	Stand()
	Walk(dir gait.Direction, steps int) waiter.Result
	Turn(t gait.Turn, steps int) waiter.Result
}

// Alerter sounds the short Warning alert.
type Alerter interface {
	Alert()
}

// Move is the action chosen for a state.
type Move int

const (
	MoveForward Move = iota
	MoveHold
	MoveTurnLeft
	MoveTurnRight
)

func (m Move) String() string {
	switch m {
	case MoveForward:
		return "FORWARD"
	case MoveHold:
		return "HOLD"
	case MoveTurnLeft:
		return "TURN LEFT"
	case MoveTurnRight:
		return "TURN RIGHT"
	}
	return "UNKNOWN"
}

// Decision records what the policy did in one cycle.
type Decision struct {
	State State
	Move  Move
}

// Policy executes one avoidance move per call.
type Policy struct {
	mover     Mover
	alert     Alerter
	wait      *waiter.Waiter
	longPause time.Duration
	actions   uint
}

// NewPolicy creates a policy. alert may be nil; a non-positive longPause
// selects DefaultLongPause.
func NewPolicy(m Mover, alert Alerter, w *waiter.Waiter, longPause time.Duration) *Policy {
	if longPause <= 0 {
		longPause = DefaultLongPause
	}
	return &Policy{
		mover:     m,
		alert:     alert,
		wait:      w,
		longPause: longPause,
	}
}

// Act performs the move for s. Clear walks one step forward, Warning stands
// and pauses, Danger turns one step. Danger turns alternate by the parity of
// the action counter as it was before this call (even turns left). The
// counter advances on every call.
func (p *Policy) Act(s State) (Decision, waiter.Result) {
	move := p.Next(s)
	p.actions++

	d := Decision{State: s, Move: move}
	switch move {
	case MoveTurnLeft:
		return d, p.mover.Turn(gait.Left, 1)
	case MoveTurnRight:
		return d, p.mover.Turn(gait.Right, 1)
	case MoveHold:
		p.mover.Stand()
		if p.alert != nil {
			p.alert.Alert()
		}
		return d, p.wait.Wait(p.longPause)
	default:
		d.State = Clear
		return d, p.mover.Walk(gait.Forward, 1)
	}
}

// Next returns the move Act would perform for s, without performing it.
func (p *Policy) Next(s State) Move {
	switch s {
	case Danger:
		if p.actions%2 == 1 {
			return MoveTurnRight
		}
		return MoveTurnLeft
	case Warning:
		return MoveHold
	}
	return MoveForward
}

// Actions returns the action counter.
func (p *Policy) Actions() uint {
	return p.actions
}

// Reset zeroes the action counter.
func (p *Policy) Reset() {
	p.actions = 0
}
