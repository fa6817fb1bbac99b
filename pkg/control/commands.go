package control

import (
	"fmt"

	"github.com/gwillem/robodog/pkg/gait"
	"github.com/gwillem/robodog/pkg/waiter"
)

type command struct {
	name string
	run  func(s *Scheduler) waiter.Result
}

// commands maps remote command bytes to their actions. Bytes are
// case-sensitive.
var commands = map[byte]command{
	'S': {"Stand", (*Scheduler).stand},
	'T': {"Sit", func(s *Scheduler) waiter.Result { return s.gesture(gait.SitDown) }},
	'F': {"Forward", func(s *Scheduler) waiter.Result { return s.engine.Walk(gait.Forward, 1) }},
	'B': {"Backward", func(s *Scheduler) waiter.Result { return s.engine.Walk(gait.Backward, 1) }},
	'L': {"Turn Left", func(s *Scheduler) waiter.Result { return s.engine.Turn(gait.Left, 1) }},
	'R': {"Turn Right", func(s *Scheduler) waiter.Result { return s.engine.Turn(gait.Right, 1) }},
	'P': {"Stop", (*Scheduler).stand},
	'U': {"Speed Up", func(s *Scheduler) waiter.Result { return s.stepSpeed(+1) }},
	'D': {"Speed Down", func(s *Scheduler) waiter.Result { return s.stepSpeed(-1) }},
	'M': {"Hello", func(s *Scheduler) waiter.Result { return s.gesture(gait.Hello) }},
	'X': {"Shake", func(s *Scheduler) waiter.Result { return s.gesture(gait.Shake) }},
}

// CommandName returns the name of a command byte.
func CommandName(b byte) (string, bool) {
	c, ok := commands[b]
	return c.name, ok
}

// execute runs one teleop command and acknowledges it.
func (s *Scheduler) execute(b byte) {
	s.commands++

	c, ok := commands[b]
	if !ok {
		s.ack(fmt.Sprintf("Unknown CMD: %c", b))
		s.show(rowAction, fmt.Sprintf("UNKNOWN: %c", b))
		s.log("Unknown command %q", b)
		s.record(Event{Kind: EventCommand, Mode: s.mode, Detail: fmt.Sprintf("unknown %q", b)})
		return
	}

	s.ack("CMD: " + c.name)
	s.show(rowAction, "ACTION: "+c.name)
	s.record(Event{Kind: EventCommand, Mode: s.mode, Detail: c.name})

	// A cancelled action has already been acknowledged by the forced idle.
	if c.run(s) == waiter.Cancelled {
		return
	}
	s.ack(s.statusLine())
}

func (s *Scheduler) statusLine() string {
	return fmt.Sprintf("Status: Mode=%s, Speed=%d", s.mode, s.engine.WalkSpeed())
}

func (s *Scheduler) stand() waiter.Result {
	s.engine.Stand()
	s.posture = Standing
	return waiter.Completed
}

func (s *Scheduler) stepSpeed(delta int) waiter.Result {
	v := s.engine.WalkSpeed() + delta
	if s.engine.SetWalkSpeed(v) {
		s.show(rowInfo, fmt.Sprintf("SPEED: %d/10", v))
		s.beep(BeepShort)
	}
	return waiter.Completed
}

func (s *Scheduler) gesture(g gait.Gesture) waiter.Result {
	res := s.engine.Gesture(g)
	if res == waiter.Completed {
		if g == gait.SitDown {
			s.posture = Sitting
		} else {
			s.posture = Standing
		}
	}
	return res
}
