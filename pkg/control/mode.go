// Package control arbitrates between the operating modes of the robot.
//
// A Scheduler owns all mutable kernel state and is driven by repeated calls
// to Tick from a single goroutine. Each tick samples the operator keys and
// the cancel input, then runs one bounded unit of work for the current mode.
// The Controller wraps a Scheduler in a timed loop and publishes snapshots
// and log lines for a user interface.
package control

import (
	"fmt"
	"strings"

	"github.com/gwillem/robodog/pkg/gait"
)

// Mode is the active operating mode.
type Mode int

const (
	Idle Mode = iota
	Avoidance
	Teleop
	// One-shot gestures return to Idle when they finish.
	Hello
	Sit
	Shake
)

var modeNames = map[Mode]string{
	Idle:      "idle",
	Avoidance: "avoidance",
	Teleop:    "teleop",
	Hello:     "hello",
	Sit:       "sit",
	Shake:     "shake",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name to a Mode. Matching ignores case.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return Idle, fmt.Errorf("unknown mode %q", s)
}

// OneShot reports whether m runs a single gesture.
func (m Mode) OneShot() bool {
	return m == Hello || m == Sit || m == Shake
}

// Gesture returns the gesture run by a one-shot mode.
func (m Mode) Gesture() (gait.Gesture, bool) {
	switch m {
	case Hello:
		return gait.Hello, true
	case Sit:
		return gait.SitDown, true
	case Shake:
		return gait.Shake, true
	}
	return 0, false
}

// Posture is the last known body posture.
type Posture int

const (
	Standing Posture = iota
	Sitting
	Neutral
)

func (p Posture) String() string {
	switch p {
	case Sitting:
		return "sitting"
	case Neutral:
		return "neutral"
	}
	return "standing"
}

// Key is a logical operator key, e.g. "1".
type Key string

// Bindings maps operator keys to the mode they select. A key bound to Idle
// acts as the cancel key.
type Bindings map[Key]Mode

// DefaultBindings returns the standard four-key layout.
func DefaultBindings() Bindings {
	return Bindings{
		"1": Teleop,
		"2": Avoidance,
		"3": Hello,
		"4": Idle,
	}
}

// ParseBindings converts a key -> mode-name map, as stored in the config file.
func ParseBindings(m map[string]string) (Bindings, error) {
	b := make(Bindings, len(m))
	for k, name := range m {
		mode, err := ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		b[Key(k)] = mode
	}
	return b, nil
}

// CancelKeys returns the keys bound to Idle.
func (b Bindings) CancelKeys() []Key {
	var keys []Key
	for k, m := range b {
		if m == Idle {
			keys = append(keys, k)
		}
	}
	return keys
}
