package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gwillem/robodog/pkg/gait"
	"github.com/gwillem/robodog/pkg/robot"
	"github.com/gwillem/robodog/pkg/sim"
	"github.com/gwillem/robodog/pkg/waiter"
)

type SweepCommand struct {
	Simulate bool `long:"sim" description:"Sweep the simulated legs instead of the servo bus"`
}

// contextCancel cancels waits once ctx is done.
type contextCancel struct{ ctx context.Context }

func (c contextCancel) CancelRequested() bool { return c.ctx.Err() != nil }

// printingActuator prints every leg write before passing it on.
type printingActuator struct{ next gait.Actuator }

func (p printingActuator) SetChannelAngle(channel int, degrees float64) error {
	fmt.Printf("  %-12s %6.1f°\n", robot.Leg(channel), degrees)
	return p.next.SetChannelAngle(channel, degrees)
}

func (c *SweepCommand) Execute(args []string) error {
	cfg, _, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	timing, err := timingFrom(cfg.Gait)
	if err != nil {
		return err
	}

	var act gait.Actuator
	var body *robot.Body
	if cfg.Actuator.Port != "" && !c.Simulate {
		body, err = robot.NewBody(cfg.Actuator.Port, cfg.Actuator.Baud, cfg.Actuator.Servos)
		if err != nil {
			return err
		}
		defer body.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := body.Enable(ctx); err != nil {
			return fmt.Errorf("enable torque: %w", err)
		}
		act = body
	} else {
		act = robot.NewPulseActuator(sim.NewPWM())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := waiter.New(waiter.RealClock{}, contextCancel{ctx}, time.Duration(cfg.Wait.QuantumMS)*time.Millisecond)
	engine := gait.NewEngine(printingActuator{act}, w, cfg.Gait.Calibration, timing)
	engine.SetProtectedLeg(cfg.Gait.ProtectedLeg)

	fmt.Println(headerStyle.Render("Sweeping legs"))
	if engine.TestSweep() == waiter.Cancelled {
		fmt.Println(dimStyle.Render("Interrupted, standing."))
		return nil
	}
	engine.Stand()

	if body != nil {
		readCtx, cancel := context.WithTimeout(ctx, time.Second)
		angles, err := body.ReadAngles(readCtx)
		cancel()
		if err != nil {
			return err
		}
		fmt.Println(subHeaderStyle.Render("Read back"))
		for _, leg := range robot.AllLegs() {
			fmt.Printf("  %-12s %6.1f°\n", leg, angles[leg])
		}
	}
	fmt.Println(successStyle.Render("Sweep complete."))
	return nil
}
