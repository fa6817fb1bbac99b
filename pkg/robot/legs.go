// Package robot provides the leg model, calibration and configuration of the
// quadruped, and the servo bus that drives its legs.
package robot

import "fmt"

// Leg identifies one of the four legs. The value is the actuator channel id.
type Leg int

// Legs of the quadruped, numbered by actuator channel.
const (
	FrontRight Leg = 1
	FrontLeft  Leg = 2
	RearLeft   Leg = 3
	RearRight  Leg = 4
)

// Angle limits in degrees.
const (
	MinAngle     = 30.0
	MaxAngle     = 150.0
	NeutralAngle = 90.0

	// ProtectedMin and ProtectedMax bound the protected leg.
	ProtectedMin = 40.0
	ProtectedMax = 140.0
)

// DefaultProtectedLeg is the leg whose servo is historically fragile.
const DefaultProtectedLeg = RearRight

var legNames = map[Leg]string{
	FrontRight: "front_right",
	FrontLeft:  "front_left",
	RearLeft:   "rear_left",
	RearRight:  "rear_right",
}

// AllLegs returns all legs in channel order (1-4).
func AllLegs() []Leg {
	return []Leg{
		FrontRight,
		FrontLeft,
		RearLeft,
		RearRight,
	}
}

// Valid reports whether l is one of the four legs.
func (l Leg) Valid() bool {
	return l >= FrontRight && l <= RearRight
}

// Channel returns the actuator channel id of the leg.
func (l Leg) Channel() int {
	return int(l)
}

func (l Leg) String() string {
	if name, ok := legNames[l]; ok {
		return name
	}
	return fmt.Sprintf("leg(%d)", int(l))
}

// ParseLeg converts a leg name such as "rear_right" to a Leg.
func ParseLeg(s string) (Leg, bool) {
	for leg, name := range legNames {
		if name == s {
			return leg, true
		}
	}
	return 0, false
}

// MarshalText encodes the leg by name, so legs can key JSON objects.
func (l Leg) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid leg %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a leg name.
func (l *Leg) UnmarshalText(text []byte) error {
	leg, ok := ParseLeg(string(text))
	if !ok {
		return fmt.Errorf("unknown leg %q", text)
	}
	*l = leg
	return nil
}

// Limits is a closed angle range in degrees.
type Limits struct {
	Min float64
	Max float64
}

// Clamp returns a limited to the range.
func (r Limits) Clamp(a float64) float64 {
	if a < r.Min {
		return r.Min
	}
	if a > r.Max {
		return r.Max
	}
	return a
}

// Contains reports whether a lies within the range.
func (r Limits) Contains(a float64) bool {
	return a >= r.Min && a <= r.Max
}

// LimitsFor returns the hard angle limits of a leg. The protected leg gets
// the narrower protective range.
func LimitsFor(leg, protected Leg) Limits {
	if leg == protected {
		return Limits{Min: ProtectedMin, Max: ProtectedMax}
	}
	return Limits{Min: MinAngle, Max: MaxAngle}
}
