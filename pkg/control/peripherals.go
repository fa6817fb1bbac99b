package control

import (
	"time"

	"github.com/gwillem/robodog/pkg/avoid"
)

// Display is the character display. Rows count from 1.
type Display interface {
	SetLine(row int, text string)
}

// Indicators drives the four status lights. Light(0) turns all of them off.
type Indicators interface {
	Light(n int)
}

// BeepPattern selects a buzzer sequence.
type BeepPattern int

const (
	BeepShort BeepPattern = iota
	BeepLong
	BeepDouble
	BeepTriple
	BeepSOS
)

func (p BeepPattern) String() string {
	switch p {
	case BeepLong:
		return "long"
	case BeepDouble:
		return "double"
	case BeepTriple:
		return "triple"
	case BeepSOS:
		return "sos"
	}
	return "short"
}

// Buzzer plays beep patterns. Implementations must not block for long; the
// scheduler calls Beep from inside timed actions.
type Buzzer interface {
	Beep(p BeepPattern)
}

// KeyInput is polled once per tick for an operator key press.
type KeyInput interface {
	PollKey() (Key, bool)
}

// Acknowledger carries acknowledgment lines back over the command channel.
type Acknowledger interface {
	Acknowledge(line string)
}

// Event kinds recorded by the scheduler.
const (
	EventMode     = "mode"
	EventDecision = "decision"
	EventCommand  = "command"
	EventCancel   = "cancel"
)

// Event is one entry for a Recorder.
type Event struct {
	Time     time.Time
	Kind     string
	Mode     Mode
	Detail   string
	Distance avoid.Reading
}

// Recorder stores scheduler events. Record must not block.
type Recorder interface {
	Record(e Event)
}

// Peripherals bundles the scheduler's collaborators. Any of them may be nil.
type Peripherals struct {
	Display    Display
	Indicators Indicators
	Buzzer     Buzzer
	Keys       KeyInput
	Ack        Acknowledger
	Recorder   Recorder
}

type buzzerAlert struct{ b Buzzer }

func (a buzzerAlert) Alert() { a.b.Beep(BeepShort) }
