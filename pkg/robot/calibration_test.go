package robot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestServoCalibration_Normalize(t *testing.T) {
	cal := ServoCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, 0.0},   // min -> 0
		{3000, 180.0}, // max -> 180
		{2000, 90.0},  // mid -> neutral
		{1500, 45.0},
		{2500, 135.0},
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestServoCalibration_Denormalize(t *testing.T) {
	cal := ServoCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		degrees  float64
		expected int
	}{
		{0, 1000},
		{180, 3000},
		{90, 2000},
		{45, 1500},
		{135, 2500},
	}

	for _, tt := range tests {
		got := cal.Denormalize(tt.degrees)
		if got != tt.expected {
			t.Errorf("Denormalize(%f) = %d, want %d", tt.degrees, got, tt.expected)
		}
	}
}

func TestServoCalibration_RoundTrip(t *testing.T) {
	cal := ServoCalibration{
		RangeMin: 823,
		RangeMax: 3540,
	}

	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		deg := cal.Normalize(raw)
		back := cal.Denormalize(deg)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, deg, back)
		}
	}
}

func TestServos_IDs(t *testing.T) {
	servos := Servos{
		RearRight:  ServoCalibration{ID: 4},
		FrontLeft:  ServoCalibration{ID: 2},
		FrontRight: ServoCalibration{ID: 1},
		RearLeft:   ServoCalibration{ID: 3},
	}

	ids := servos.IDs()
	expected := []int{1, 2, 3, 4}

	if len(ids) != len(expected) {
		t.Fatalf("IDs returned %d IDs, want %d", len(ids), len(expected))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("IDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestServos_ByID(t *testing.T) {
	servos := Servos{
		FrontRight: ServoCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		RearRight:  ServoCalibration{ID: 4, RangeMin: 300, RangeMax: 400},
	}

	leg, sc, ok := servos.ByID(1)
	if !ok {
		t.Fatal("ByID(1) returned false")
	}
	if leg != FrontRight {
		t.Errorf("ByID(1) returned leg %s, want front_right", leg)
	}
	if sc.RangeMin != 100 {
		t.Errorf("ByID(1) returned wrong calibration: %+v", sc)
	}

	if _, _, ok := servos.ByID(99); ok {
		t.Error("ByID(99) should return false")
	}
}

func TestDefaultCalibration_Valid(t *testing.T) {
	if err := DefaultCalibration().Validate(); err != nil {
		t.Fatalf("default calibration invalid: %v", err)
	}
}

func TestCalibration_ValidateRejectsOutOfRange(t *testing.T) {
	cal := DefaultCalibration()
	p := cal[FrontLeft]
	p.LiftHigh = 160
	cal[FrontLeft] = p

	if err := cal.Validate(); err == nil {
		t.Error("Validate should reject an angle above 150")
	}

	delete(cal, FrontLeft)
	if err := cal.Validate(); err == nil {
		t.Error("Validate should reject a missing leg")
	}
}

func TestLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gait.json")
	data := `{
		"front_right": {"stand": 90, "sit": 45, "lift_high": 110, "lift_low": 70, "push_high": 120, "push_low": 60},
		"front_left":  {"stand": 92, "sit": 135, "lift_high": 70, "lift_low": 110, "push_high": 60, "push_low": 120},
		"rear_left":   {"stand": 90, "sit": 135, "lift_high": 70, "lift_low": 110, "push_high": 60, "push_low": 120},
		"rear_right":  {"stand": 88, "sit": 45, "lift_high": 110, "lift_low": 70, "push_high": 120, "push_low": 60}
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if got := cal[FrontLeft].Stand; got != 92 {
		t.Errorf("front_left stand = %v, want 92", got)
	}
	if got := cal[RearRight].Stand; got != 88 {
		t.Errorf("rear_right stand = %v, want 88", got)
	}
}

func TestLimitsFor(t *testing.T) {
	tests := []struct {
		leg  Leg
		in   float64
		want float64
	}{
		{FrontRight, 0, 30},
		{FrontRight, 180, 150},
		{FrontRight, 90, 90},
		{RearRight, 0, 40},
		{RearRight, 180, 140},
		{RearRight, 35, 40},
		{RearRight, 120, 120},
	}

	for _, tt := range tests {
		got := LimitsFor(tt.leg, RearRight).Clamp(tt.in)
		if got != tt.want {
			t.Errorf("LimitsFor(%s).Clamp(%v) = %v, want %v", tt.leg, tt.in, got, tt.want)
		}
	}
}

func TestPulseWidth(t *testing.T) {
	tests := []struct {
		degrees float64
		want    uint16
	}{
		{0, 500},
		{90, 1500},
		{180, 2500},
		{-10, 500},
		{200, 2500},
	}

	for _, tt := range tests {
		if got := PulseWidth(tt.degrees); got != tt.want {
			t.Errorf("PulseWidth(%v) = %d, want %d", tt.degrees, got, tt.want)
		}
	}
}
