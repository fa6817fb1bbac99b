package control

import (
	"fmt"
	"strings"
	"time"

	"github.com/gwillem/robodog/pkg/avoid"
	"github.com/gwillem/robodog/pkg/gait"
	"github.com/gwillem/robodog/pkg/mailbox"
	"github.com/gwillem/robodog/pkg/monitoring"
	"github.com/gwillem/robodog/pkg/waiter"
)

// HeartbeatPeriod is the blink period of the idle indicator.
const HeartbeatPeriod = 500 * time.Millisecond

// Indicator lights.
const (
	lightDanger    = 1
	lightWarning   = 2
	lightClear     = 3
	lightHeartbeat = 4
)

// Display rows.
const (
	rowState  = 1
	rowAction = 2
	rowInfo   = 3
)

// Config holds the avoidance parameters and key bindings of a Scheduler.
type Config struct {
	Thresholds avoid.Thresholds
	RetryDelay time.Duration
	LongPause  time.Duration
	Bindings   Bindings
}

// Snapshot is a copy of the scheduler state after a tick.
type Snapshot struct {
	Time     time.Time
	Mode     Mode
	Speed    int
	Posture  Posture
	State    avoid.State
	Move     avoid.Move
	Reading  avoid.Reading
	Actions  uint
	Count    int
	Ticks    uint64
	Commands uint64
}

// Scheduler is the kernel context: the current mode and everything the mode
// handlers read or write. It must only be used from one goroutine; the
// mailbox is the only part written from elsewhere.
type Scheduler struct {
	engine     *gait.Engine
	wait       *waiter.Waiter
	cancel     waiter.CancelInput
	reader     *avoid.Reader
	classifier *avoid.Classifier
	policy     *avoid.Policy
	mail       *mailbox.Mailbox
	bindings   Bindings
	io         Peripherals

	mode     Mode
	posture  Posture
	state    avoid.State
	move     avoid.Move
	reading  avoid.Reading
	ticks    uint64
	commands uint64
	lastBeat time.Time
	beatOn   bool

	logf func(format string, args ...any)
}

// NewScheduler creates a scheduler in Idle. It installs itself as the wait
// cancellation hook and as the engine's completion observer.
func NewScheduler(engine *gait.Engine, w *waiter.Waiter, cancel waiter.CancelInput, ranger avoid.Ranger, mail *mailbox.Mailbox, cfg Config, io Peripherals) *Scheduler {
	if cfg.Bindings == nil {
		cfg.Bindings = DefaultBindings()
	}
	if cfg.Thresholds == (avoid.Thresholds{}) {
		cfg.Thresholds = avoid.DefaultThresholds()
	}
	if mail == nil {
		mail = &mailbox.Mailbox{}
	}

	var alert avoid.Alerter
	if io.Buzzer != nil {
		alert = buzzerAlert{io.Buzzer}
	}

	s := &Scheduler{
		engine:     engine,
		wait:       w,
		cancel:     cancel,
		reader:     avoid.NewReader(ranger, w, cfg.RetryDelay),
		classifier: avoid.NewClassifier(cfg.Thresholds),
		policy:     avoid.NewPolicy(engine, alert, w, cfg.LongPause),
		mail:       mail,
		bindings:   cfg.Bindings,
		io:         io,
		mode:       Idle,
	}
	w.OnCancel(s.forceIdle)
	engine.OnActionComplete(s)
	return s
}

// SetLogger routes scheduler log lines to f. Nil restores monitoring.Logf.
func (s *Scheduler) SetLogger(f func(format string, args ...any)) {
	s.logf = f
}

func (s *Scheduler) log(format string, args ...any) {
	if s.logf != nil {
		s.logf(format, args...)
		return
	}
	monitoring.Logf(format, args...)
}

// Mailbox returns the command mailbox fed by the links.
func (s *Scheduler) Mailbox() *mailbox.Mailbox {
	return s.mail
}

// Engine returns the gait engine.
func (s *Scheduler) Engine() *gait.Engine {
	return s.engine
}

// Mode returns the current mode.
func (s *Scheduler) Mode() Mode {
	return s.mode
}

// Boot brings the legs to a known posture and announces readiness.
func (s *Scheduler) Boot() {
	s.engine.ResetPose()
	s.engine.Stand()
	s.posture = Standing
	s.mode = Idle
	s.show(rowState, "READY")
	s.show(rowAction, "")
	s.show(rowInfo, fmt.Sprintf("SPEED: %d/10", s.engine.WalkSpeed()))
	s.beep(BeepTriple)
	s.log("Boot complete, mode=%s speed=%d", s.mode, s.engine.WalkSpeed())
}

// Tick runs one scheduler iteration: sample inputs, apply forced
// transitions, then run one unit of work for the current mode.
func (s *Scheduler) Tick() {
	s.ticks++

	if s.cancel != nil && s.cancel.CancelRequested() && s.mode != Idle {
		s.forceIdle()
	}
	if s.io.Keys != nil {
		if k, ok := s.io.Keys.PollKey(); ok {
			s.handleKey(k)
		}
	}

	switch {
	case s.mode == Avoidance:
		s.avoidTick()
	case s.mode == Teleop:
		s.teleopTick()
	case s.mode.OneShot():
		s.oneShotTick()
	default:
		s.idleTick()
	}
}

// SetMode requests a transition as an operator key bound to m would.
func (s *Scheduler) SetMode(m Mode) {
	if m == Idle {
		if s.mode != Idle {
			s.forceIdle()
		}
		return
	}
	if s.mode != Idle {
		s.log("Ignoring %s: mode %s is active", m, s.mode)
		return
	}
	s.enter(m)
}

func (s *Scheduler) handleKey(k Key) {
	m, ok := s.bindings[k]
	if !ok {
		s.log("Unbound key %q", k)
		return
	}
	s.SetMode(m)
}

func (s *Scheduler) enter(m Mode) {
	prev := s.mode
	s.mode = m

	switch m {
	case Avoidance:
		s.classifier.Reset()
		s.policy.Reset()
		s.show(rowState, "STATE: AVOID")
		s.beep(BeepDouble)
	case Teleop:
		s.mail.Clear()
		s.show(rowState, "STATE: TELEOP")
		s.show(rowAction, "WAITING CMD...")
		s.beep(BeepTriple)
	case Idle:
		s.show(rowState, "STATE: IDLE")
	default:
		s.show(rowState, "STATE: "+strings.ToUpper(m.String()))
	}
	s.light(0)

	s.log("Mode %s -> %s", prev, m)
	s.record(Event{Kind: EventMode, Mode: m, Detail: prev.String() + "->" + m.String()})
}

// forceIdle is the cancellation side effect: stand, switch to Idle and
// acknowledge. It runs from inside a cancelled wait or from Tick.
func (s *Scheduler) forceIdle() {
	prev := s.mode
	s.engine.Stand()
	s.posture = Standing
	s.enter(Idle)
	s.beep(BeepShort)
	s.ack("Cancelled")
	s.record(Event{Kind: EventCancel, Mode: Idle, Detail: prev.String()})
}

func (s *Scheduler) avoidTick() {
	reading, res := s.reader.ReadDistanceSafe()
	if res == waiter.Cancelled {
		return
	}
	state := s.classifier.Classify(reading)
	move := s.policy.Next(state)

	s.reading, s.state, s.move = reading, state, move
	s.show(rowState, "STATE: "+stateText(state))
	s.show(rowAction, "ACTION: "+move.String())
	s.show(rowInfo, "DIST: "+reading.String())
	switch state {
	case avoid.Danger:
		s.light(lightDanger)
		s.beep(BeepLong)
	case avoid.Warning:
		s.light(lightWarning)
	default:
		s.light(lightClear)
	}
	s.record(Event{Kind: EventDecision, Mode: Avoidance, Detail: state.String() + " " + move.String(), Distance: reading})

	if _, res := s.policy.Act(state); res == waiter.Cancelled {
		return
	}
	if move == avoid.MoveHold {
		s.posture = Standing
	}
}

func stateText(st avoid.State) string {
	switch st {
	case avoid.Danger:
		return "TURNING"
	case avoid.Warning:
		return "SLOW DOWN"
	}
	return "WALKING"
}

func (s *Scheduler) teleopTick() {
	b, ok := s.mail.Take()
	if !ok {
		return
	}
	s.execute(b)
}

func (s *Scheduler) oneShotTick() {
	g, _ := s.mode.Gesture()
	if s.gesture(g) == waiter.Cancelled {
		return
	}
	s.enter(Idle)
}

func (s *Scheduler) idleTick() {
	now := s.wait.Clock().Now()
	if now.Sub(s.lastBeat) < HeartbeatPeriod {
		return
	}
	s.lastBeat = now
	s.beatOn = !s.beatOn
	if s.beatOn {
		s.light(lightHeartbeat)
	} else {
		s.light(0)
	}
}

// ActionComplete tracks posture after walks and turns.
func (s *Scheduler) ActionComplete(a gait.Action) {
	s.posture = Standing
}

// Snapshot returns a copy of the current state.
func (s *Scheduler) Snapshot() Snapshot {
	return Snapshot{
		Time:     s.wait.Clock().Now(),
		Mode:     s.mode,
		Speed:    s.engine.WalkSpeed(),
		Posture:  s.posture,
		State:    s.state,
		Move:     s.move,
		Reading:  s.reading,
		Actions:  s.policy.Actions(),
		Count:    s.classifier.Count(),
		Ticks:    s.ticks,
		Commands: s.commands,
	}
}

func (s *Scheduler) show(row int, text string) {
	if s.io.Display != nil {
		s.io.Display.SetLine(row, text)
	}
}

func (s *Scheduler) light(n int) {
	if s.io.Indicators != nil {
		s.io.Indicators.Light(n)
	}
}

func (s *Scheduler) beep(p BeepPattern) {
	if s.io.Buzzer != nil {
		s.io.Buzzer.Beep(p)
	}
}

func (s *Scheduler) ack(line string) {
	if s.io.Ack != nil {
		s.io.Ack.Acknowledge(line)
	}
}

func (s *Scheduler) record(e Event) {
	if s.io.Recorder == nil {
		return
	}
	e.Time = s.wait.Clock().Now()
	s.io.Recorder.Record(e)
}
