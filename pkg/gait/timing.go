package gait

import (
	"sort"
	"time"
)

// Timing holds the coefficients of every timed engine action.
//
// A walk phase issues four leg writes separated by three Stagger pauses, then
// holds for WalkHold(speed). A turn phase writes all legs at once and holds
// for TurnHold(speed).
type Timing struct {
	Stagger time.Duration

	WalkBase     time.Duration
	WalkPerSpeed time.Duration
	WalkDivisor  int

	TurnBase     time.Duration
	TurnPerSpeed time.Duration

	// MinHold is the positive floor for both phase holds.
	MinHold time.Duration

	SitSettle   time.Duration
	ResetSettle time.Duration
	SweepHold   time.Duration

	// TurnSwing is the fixed turn excursion from neutral, in degrees.
	TurnSwing float64
}

var presets = map[string]Timing{
	// Diagonal trot with staggered leg writes to flatten current spikes.
	"staggered": {
		Stagger:      20 * time.Millisecond,
		WalkBase:     200 * time.Millisecond,
		WalkPerSpeed: 15 * time.Millisecond,
		WalkDivisor:  2,
		TurnBase:     300 * time.Millisecond,
		TurnPerSpeed: 20 * time.Millisecond,
		MinHold:      20 * time.Millisecond,
		SitSettle:    500 * time.Millisecond,
		ResetSettle:  500 * time.Millisecond,
		SweepHold:    500 * time.Millisecond,
		TurnSwing:    20,
	},
	// Same trot with all four legs written back to back.
	"plain": {
		WalkBase:     200 * time.Millisecond,
		WalkPerSpeed: 15 * time.Millisecond,
		WalkDivisor:  2,
		TurnBase:     300 * time.Millisecond,
		TurnPerSpeed: 20 * time.Millisecond,
		MinHold:      20 * time.Millisecond,
		SitSettle:    500 * time.Millisecond,
		ResetSettle:  500 * time.Millisecond,
		SweepHold:    500 * time.Millisecond,
		TurnSwing:    20,
	},
}

// DefaultTiming returns the "staggered" preset.
func DefaultTiming() Timing {
	return presets["staggered"]
}

// Preset returns a named timing preset.
func Preset(name string) (Timing, bool) {
	t, ok := presets[name]
	return t, ok
}

// PresetNames lists the timing presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WalkHold returns the hold after each walk phase:
// (WalkBase - WalkPerSpeed*speed) / WalkDivisor, floored at MinHold.
func (t Timing) WalkHold(speed int) time.Duration {
	hold := t.WalkBase - t.WalkPerSpeed*time.Duration(speed)
	if t.WalkDivisor > 1 {
		hold /= time.Duration(t.WalkDivisor)
	}
	return t.floor(hold)
}

// TurnHold returns the hold after each turn phase:
// TurnBase - TurnPerSpeed*speed, floored at MinHold.
func (t Timing) TurnHold(speed int) time.Duration {
	return t.floor(t.TurnBase - t.TurnPerSpeed*time.Duration(speed))
}

func (t Timing) floor(d time.Duration) time.Duration {
	lo := t.MinHold
	if lo <= 0 {
		lo = time.Millisecond
	}
	if d < lo {
		return lo
	}
	return d
}

// WalkPhase returns the duration of one walk phase.
func (t Timing) WalkPhase(speed int) time.Duration {
	return 3*t.Stagger + t.WalkHold(speed)
}

// WalkDuration returns the uninterrupted duration of walk(steps).
func (t Timing) WalkDuration(steps, speed int) time.Duration {
	return time.Duration(steps) * walkPhases * t.WalkPhase(speed)
}

// TurnDuration returns the uninterrupted duration of turn(steps).
func (t Timing) TurnDuration(steps, speed int) time.Duration {
	return time.Duration(steps) * turnPhases * t.TurnHold(speed)
}
