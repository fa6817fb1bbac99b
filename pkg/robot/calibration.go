package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// GaitProfile holds the six calibrated angles of a leg, in degrees.
type GaitProfile struct {
	Stand    float64 `json:"stand"`
	Sit      float64 `json:"sit"`
	LiftHigh float64 `json:"lift_high"`
	LiftLow  float64 `json:"lift_low"`
	PushHigh float64 `json:"push_high"`
	PushLow  float64 `json:"push_low"`
}

// Angles returns the profile angles in declaration order.
func (p GaitProfile) Angles() []float64 {
	return []float64{p.Stand, p.Sit, p.LiftHigh, p.LiftLow, p.PushHigh, p.PushLow}
}

// Valid reports whether every angle lies within [MinAngle, MaxAngle].
func (p GaitProfile) Valid() bool {
	limits := Limits{Min: MinAngle, Max: MaxAngle}
	for _, a := range p.Angles() {
		if !limits.Contains(a) {
			return false
		}
	}
	return true
}

// Calibration holds the gait profiles of all legs.
type Calibration map[Leg]GaitProfile

// DefaultCalibration returns the factory gait profiles. Left and right legs
// are mirrored because their servos are mounted facing each other.
func DefaultCalibration() Calibration {
	right := GaitProfile{Stand: 90, Sit: 45, LiftHigh: 110, LiftLow: 70, PushHigh: 120, PushLow: 60}
	left := GaitProfile{Stand: 90, Sit: 135, LiftHigh: 70, LiftLow: 110, PushHigh: 60, PushLow: 120}
	return Calibration{
		FrontRight: right,
		FrontLeft:  left,
		RearLeft:   left,
		RearRight:  right,
	}
}

// Validate checks that every leg has a profile with in-range angles.
func (c Calibration) Validate() error {
	for _, leg := range AllLegs() {
		p, ok := c[leg]
		if !ok {
			return fmt.Errorf("missing profile for %s", leg)
		}
		if !p.Valid() {
			return fmt.Errorf("profile for %s out of range [%g, %g]", leg, MinAngle, MaxAngle)
		}
	}
	return nil
}

// LoadCalibration loads gait profiles from a JSON file keyed by leg name.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}

// ServoCalibration maps a leg to a bus servo and its raw position range.
// Raw RangeMin corresponds to 0 degrees and RangeMax to 180 degrees.
type ServoCalibration struct {
	ID       int `json:"id"`
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
}

// Servos holds the servo calibration of all legs.
type Servos map[Leg]ServoCalibration

// DefaultServos returns bus ids 1-4 (matching leg channels) over the full
// 12-bit position range.
func DefaultServos() Servos {
	servos := make(Servos, 4)
	for _, leg := range AllLegs() {
		servos[leg] = ServoCalibration{ID: leg.Channel(), RangeMin: 0, RangeMax: 4095}
	}
	return servos
}

// Normalize converts a raw servo position to an angle in degrees [0, 180].
func (c ServoCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return float64(raw-c.RangeMin) / rangeSize * 180
}

// Denormalize converts an angle in degrees [0, 180] to a raw servo position.
func (c ServoCalibration) Denormalize(degrees float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(degrees/180*rangeSize+0.5) + c.RangeMin
}

// IDs returns the servo ids in leg channel order.
func (s Servos) IDs() []int {
	ids := make([]int, 0, len(s))
	for _, leg := range AllLegs() {
		if sc, ok := s[leg]; ok {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}

// ByID returns the leg and calibration for a given servo id.
func (s Servos) ByID(id int) (Leg, ServoCalibration, bool) {
	for leg, sc := range s {
		if sc.ID == id {
			return leg, sc, true
		}
	}
	return 0, ServoCalibration{}, false
}
