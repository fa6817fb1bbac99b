package robot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	cfg := DefaultConfig()
	cfg.Gait.Speed = 7
	cfg.Link.SerialPort = "/dev/ttyUSB1"
	p := cfg.Gait.Calibration[RearLeft]
	p.Stand = 95
	cfg.Gait.Calibration[RearLeft] = p

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if !ConfigExists(path) {
		t.Fatal("ConfigExists returned false after save")
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if loaded.Gait.Speed != 7 {
		t.Errorf("speed = %d, want 7", loaded.Gait.Speed)
	}
	if loaded.Link.SerialPort != "/dev/ttyUSB1" {
		t.Errorf("serial port = %q", loaded.Link.SerialPort)
	}
	if loaded.Gait.Calibration[RearLeft].Stand != 95 {
		t.Errorf("rear_left stand = %v, want 95", loaded.Gait.Calibration[RearLeft].Stand)
	}
	if loaded.Gait.ProtectedLeg != RearRight {
		t.Errorf("protected leg = %s, want rear_right", loaded.Gait.ProtectedLeg)
	}
}

func TestLoadConfigFrom_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"avoidance": {"preset": "tight"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Avoidance.Preset != "tight" {
		t.Errorf("preset = %q, want tight", cfg.Avoidance.Preset)
	}
	if cfg.Gait.Speed != 5 {
		t.Errorf("speed = %d, want default 5", cfg.Gait.Speed)
	}
	if cfg.Wait.QuantumMS != 20 {
		t.Errorf("quantum = %d, want default 20", cfg.Wait.QuantumMS)
	}
}

func TestLeg_TextRoundTrip(t *testing.T) {
	for _, leg := range AllLegs() {
		text, err := leg.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", leg, err)
		}
		var back Leg
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != leg {
			t.Errorf("round trip %s -> %q -> %s", leg, text, back)
		}
	}

	var l Leg
	if err := l.UnmarshalText([]byte("tail")); err == nil {
		t.Error("UnmarshalText should reject unknown names")
	}
}
