package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gwillem/robodog/pkg/avoid"
	"github.com/gwillem/robodog/pkg/control"
	"github.com/gwillem/robodog/pkg/gait"
	"github.com/gwillem/robodog/pkg/link"
	"github.com/gwillem/robodog/pkg/mailbox"
	"github.com/gwillem/robodog/pkg/robot"
	"github.com/gwillem/robodog/pkg/sensor"
	"github.com/gwillem/robodog/pkg/sim"
	"github.com/gwillem/robodog/pkg/telemetry"
	"github.com/gwillem/robodog/pkg/waiter"
)

// loadConfig reads path, falling back to the simulated defaults when the
// file does not exist.
func loadConfig(path string) (*robot.Config, bool, error) {
	if !robot.ConfigExists(path) {
		return robot.DefaultConfig(), false, nil
	}
	cfg, err := robot.LoadConfigFrom(path)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, true, nil
}

func millis(p *int, d *time.Duration) {
	if p != nil {
		*d = time.Duration(*p) * time.Millisecond
	}
}

// timingFrom resolves the timing preset and applies per-field overrides.
func timingFrom(g robot.GaitConfig) (gait.Timing, error) {
	name := g.Timing
	if name == "" {
		name = "staggered"
	}
	t, ok := gait.Preset(name)
	if !ok {
		return gait.Timing{}, fmt.Errorf("unknown timing preset %q (have %s)", name, strings.Join(gait.PresetNames(), ", "))
	}
	millis(g.StaggerMS, &t.Stagger)
	millis(g.WalkBaseMS, &t.WalkBase)
	millis(g.WalkPerSpeedMS, &t.WalkPerSpeed)
	millis(g.TurnBaseMS, &t.TurnBase)
	millis(g.TurnPerSpeedMS, &t.TurnPerSpeed)
	return t, nil
}

// thresholdsFrom resolves the threshold preset and applies overrides.
func thresholdsFrom(a robot.AvoidanceConfig) (avoid.Thresholds, error) {
	name := a.Preset
	if name == "" {
		name = "debounced"
	}
	th, ok := avoid.Preset(name)
	if !ok {
		return avoid.Thresholds{}, fmt.Errorf("unknown threshold preset %q (have %s)", name, strings.Join(avoid.PresetNames(), ", "))
	}
	if a.Near != nil {
		th.Near = *a.Near
	}
	if a.Far != nil {
		th.Far = *a.Far
	}
	if a.DebounceLimit != nil {
		th.DebounceLimit = *a.DebounceLimit
	}
	return th, th.Validate()
}

// schedulerConfig builds the scheduler parameters from the config file.
func schedulerConfig(cfg *robot.Config) (control.Config, error) {
	th, err := thresholdsFrom(cfg.Avoidance)
	if err != nil {
		return control.Config{}, err
	}
	bindings, err := control.ParseBindings(cfg.Keys)
	if err != nil {
		return control.Config{}, err
	}
	if len(bindings) == 0 {
		bindings = control.DefaultBindings()
	}
	return control.Config{
		Thresholds: th,
		RetryDelay: time.Duration(cfg.Avoidance.RetryDelayMS) * time.Millisecond,
		LongPause:  time.Duration(cfg.Avoidance.LongPauseMS) * time.Millisecond,
		Bindings:   bindings,
	}, nil
}

// kernel is a fully wired robot: real hardware where the config names a
// port, simulated hardware everywhere else.
type kernel struct {
	ctrl     *control.Controller
	sched    *control.Scheduler
	mail     *mailbox.Mailbox
	bindings control.Bindings

	panel   *sim.Panel
	display *sim.Display
	lights  *sim.Indicators
	buzzer  *sim.Buzzer

	pwm    *sim.PWM    // nil with a servo bus
	ranger *sim.Ranger // nil with a rangefinder

	hub    *link.Hub
	app    *fiber.App
	addr   string
	serial *link.Serial
	rec    *telemetry.Recorder
}

type kernelOptions struct {
	Simulate bool
	Hz       int
	Seed     int64
}

func buildKernel(cfg *robot.Config, o kernelOptions) (k *kernel, err error) {
	var closers []io.Closer
	defer func() {
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
		}
	}()

	timing, err := timingFrom(cfg.Gait)
	if err != nil {
		return nil, err
	}
	schedCfg, err := schedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Gait.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("gait calibration: %w", err)
	}

	k = &kernel{
		mail:     &mailbox.Mailbox{},
		bindings: schedCfg.Bindings,
		panel:    sim.NewPanel(),
		display:  &sim.Display{},
		lights:   &sim.Indicators{},
		buzzer:   &sim.Buzzer{},
	}

	var act gait.Actuator
	if cfg.Actuator.Port != "" && !o.Simulate {
		body, err := robot.NewBody(cfg.Actuator.Port, cfg.Actuator.Baud, cfg.Actuator.Servos)
		if err != nil {
			return nil, err
		}
		closers = append(closers, body)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = body.Enable(ctx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("enable torque: %w", err)
		}
		act = body
	} else {
		k.pwm = sim.NewPWM()
		act = robot.NewPulseActuator(k.pwm)
	}

	var ranger avoid.Ranger
	if cfg.Sensor.Port != "" && !o.Simulate {
		rf, err := sensor.Open(cfg.Sensor.Port, 0)
		if err != nil {
			return nil, err
		}
		closers = append(closers, rf)
		ranger = rf
	} else {
		seed := o.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		k.ranger = sim.NewRanger(seed, 80)
		ranger = k.ranger
	}

	acks := link.Multi{}
	if cfg.Link.SerialPort != "" && !o.Simulate {
		k.serial, err = link.OpenSerial(cfg.Link.SerialPort, cfg.Link.SerialBaud, k.mail)
		if err != nil {
			return nil, err
		}
		closers = append(closers, k.serial)
		acks = append(acks, k.serial)
	}
	if cfg.Link.WebSocket != "" {
		k.hub = link.NewHub(k.mail)
		k.app = link.NewApp(k.hub)
		k.addr = cfg.Link.WebSocket
		acks = append(acks, k.hub)
	}

	var rec control.Recorder
	if cfg.Telemetry.Path != "" {
		k.rec, err = telemetry.Open(cfg.Telemetry.Path, fmt.Sprintf("hz=%d sim=%t", o.Hz, o.Simulate))
		if err != nil {
			return nil, err
		}
		closers = append(closers, k.rec)
		rec = k.rec
	}

	w := waiter.New(waiter.RealClock{}, k.panel, time.Duration(cfg.Wait.QuantumMS)*time.Millisecond)
	engine := gait.NewEngine(act, w, cfg.Gait.Calibration, timing)
	engine.SetProtectedLeg(cfg.Gait.ProtectedLeg)
	engine.SetWalkSpeed(cfg.Gait.Speed)

	k.sched = control.NewScheduler(engine, w, k.panel, ranger, k.mail, schedCfg, control.Peripherals{
		Display:    k.display,
		Indicators: k.lights,
		Buzzer:     k.buzzer,
		Keys:       k.panel,
		Ack:        acks,
		Recorder:   rec,
	})
	k.ctrl = control.NewController(k.sched, o.Hz, closers...)
	return k, nil
}

// start runs the links in the background until ctx is done.
func (k *kernel) start(ctx context.Context, logf func(format string, args ...any)) {
	if k.serial != nil {
		go func() {
			if err := k.serial.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logf("serial link: %v", err)
			}
		}()
	}
	if k.app != nil {
		go func() {
			if err := k.app.Listen(k.addr); err != nil {
				logf("websocket hub: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			k.app.Shutdown()
		}()
	}
}

// serve runs the controller until ctx is done. The returned channel yields
// once the last tick and the shutdown pose have finished, so the hardware
// may be closed after receiving from it.
func (k *kernel) serve(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := k.ctrl.Start(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		done <- err
	}()
	return done
}

// press routes an operator key: panel keys go through the bindings, where
// the key bound to idle is the cancel input, and uppercase letters go to
// the command mailbox.
func (k *kernel) press(key string) bool {
	if m, ok := k.bindings[control.Key(key)]; ok {
		if m == control.Idle {
			k.panel.Cancel()
		}
		k.panel.Press(control.Key(key))
		return true
	}
	if len(key) == 1 && link.Accept(key[0]) {
		k.mail.Put(key[0])
		return true
	}
	return false
}

func (k *kernel) Close() error {
	return k.ctrl.Close()
}

// status is the JSON document served at /api/status.
type status struct {
	Mode     string   `json:"mode"`
	Speed    int      `json:"speed"`
	Posture  string   `json:"posture"`
	State    string   `json:"state"`
	Move     string   `json:"move"`
	Distance *float64 `json:"distance_cm"`
	Actions  uint     `json:"actions"`
	Ticks    uint64   `json:"ticks"`
	Commands uint64   `json:"commands"`
	Time     string   `json:"time"`
}

func statusOf(s control.Snapshot) status {
	st := status{
		Mode:     s.Mode.String(),
		Speed:    s.Speed,
		Posture:  s.Posture.String(),
		State:    s.State.String(),
		Move:     s.Move.String(),
		Actions:  s.Actions,
		Ticks:    s.Ticks,
		Commands: s.Commands,
		Time:     s.Time.Format(time.RFC3339Nano),
	}
	if s.Reading.OK {
		d := s.Reading.Distance
		st.Distance = &d
	}
	return st
}
