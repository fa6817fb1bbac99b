// Package robodog is the motion and decision kernel of a small four-legged
// walking robot.
//
// The kernel drives four leg servos through a diagonal trot, classifies
// ultrasonic distance readings into clear, warning and danger, and switches
// between idle, autonomous obstacle avoidance, remote teleoperation and a few
// one-shot gestures. Every long action waits cooperatively and returns to
// idle as soon as the operator presses cancel.
//
// # Installation
//
//	go install github.com/gwillem/robodog/cmd/robodog@latest
//
// # Usage
//
// Assign the serial ports of the leg bus, rangefinder and command link:
//
//	robodog setup
//
// Then boot the robot:
//
//	robodog run
//
// Without a configuration file, or with --sim, all hardware is simulated.
// Commands can be sent from another machine over the websocket hub:
//
//	robodog send --url ws://robodog.local:8080/ws/command FFLS
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/robodog: CLI with run, setup, calibrate, profile, sweep, send and events commands
//   - pkg/robot: Leg model, calibration, configuration and the servo bus
//   - pkg/waiter: Cancellable cooperative waits
//   - pkg/gait: Stand, sit, walk, turn and gesture sequences
//   - pkg/avoid: Distance reading, classification and the avoidance policy
//   - pkg/mailbox: Single-slot command mailbox
//   - pkg/control: Mode scheduler, teleop commands and the tick controller
//   - pkg/link: Serial and websocket command links
//   - pkg/sensor: Serial ultrasonic rangefinder
//   - pkg/sim: Simulated hardware
//   - pkg/telemetry: Event recording in sqlite
package robodog
