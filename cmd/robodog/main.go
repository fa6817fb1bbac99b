package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"robodog.json" description:"Configuration file"`

	Run       RunCommand       `command:"run" description:"Boot the robot and run the mode scheduler"`
	Setup     SetupCommand     `command:"setup" description:"Scan serial ports and assign the leg bus, sensor and command link"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Record the servo range of each leg"`
	Profile   ProfileCommand   `command:"profile" description:"Edit the gait profile of a leg"`
	Sweep     SweepCommand     `command:"sweep" description:"Sweep every leg across its range"`
	Send      SendCommand      `command:"send" description:"Send commands to a running robot over websocket"`
	Events    EventsCommand    `command:"events" description:"List recorded telemetry events"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "robodog - motion and decision kernel for a four-legged walking robot"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
