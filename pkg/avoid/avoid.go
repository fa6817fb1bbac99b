// Package avoid turns rangefinder readings into obstacle avoidance moves.
//
// A Reader retries failed measurements, a Classifier applies near/far bands
// with a debounce counter, and a Policy maps the resulting State to a gait
// action. Sensor failure is fail-open: an unreadable distance classifies as
// Clear.
package avoid

import (
	"fmt"
	"sort"
)

// MaxDistance is the exclusive upper bound of a valid reading, in cm.
const MaxDistance = 500.0

// State is the avoidance classification of one decision cycle.
type State int

const (
	Clear State = iota
	Warning
	Danger
)

func (s State) String() string {
	switch s {
	case Clear:
		return "clear"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Thresholds are the classification bands in cm. A reading below Near counts
// towards Danger; a reading below Far is a Warning. Danger is reported once
// more than DebounceLimit consecutive readings fell below Near.
type Thresholds struct {
	Near          float64 `json:"near"`
	Far           float64 `json:"far"`
	DebounceLimit int     `json:"debounce_limit"`
}

// Validate checks that the bands are ordered and positive.
func (t Thresholds) Validate() error {
	if t.Near <= 0 || t.Far <= t.Near {
		return fmt.Errorf("thresholds: need 0 < near < far, got near=%g far=%g", t.Near, t.Far)
	}
	if t.DebounceLimit < 0 {
		return fmt.Errorf("thresholds: negative debounce limit %d", t.DebounceLimit)
	}
	return nil
}

var thresholdPresets = map[string]Thresholds{
	"standard":  {Near: 15, Far: 30, DebounceLimit: 0},
	"debounced": {Near: 12, Far: 25, DebounceLimit: 2},
	"tight":     {Near: 10, Far: 20, DebounceLimit: 2},
}

// DefaultThresholds returns the "debounced" preset.
func DefaultThresholds() Thresholds {
	return thresholdPresets["debounced"]
}

// Preset returns a named threshold preset.
func Preset(name string) (Thresholds, bool) {
	t, ok := thresholdPresets[name]
	return t, ok
}

// PresetNames lists the threshold presets.
func PresetNames() []string {
	names := make([]string, 0, len(thresholdPresets))
	for name := range thresholdPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reading is the result of a safe distance read. OK is false when every
// attempt failed.
type Reading struct {
	Distance float64
	OK       bool
}

func (r Reading) String() string {
	if !r.OK {
		return "--"
	}
	return fmt.Sprintf("%.1fcm", r.Distance)
}

// Classifier maps readings to states. It keeps the consecutive near-reading
// counter between calls.
type Classifier struct {
	th    Thresholds
	count int
}

// NewClassifier creates a classifier with zeroed hysteresis.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Thresholds returns the classification bands.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

// Classify returns the state for r. A failed reading returns Clear and
// leaves the counter untouched.
func (c *Classifier) Classify(r Reading) State {
	if !r.OK {
		return Clear
	}

	switch d := r.Distance; {
	case d < c.th.Near:
		c.count++
		if c.count > c.th.DebounceLimit {
			return Danger
		}
		return Warning
	case d < c.th.Far:
		c.count = 0
		return Warning
	default:
		c.count = 0
		return Clear
	}
}

// Count returns the number of consecutive near readings.
func (c *Classifier) Count() int {
	return c.count
}

// Reset zeroes the hysteresis counter.
func (c *Classifier) Reset() {
	c.count = 0
}
