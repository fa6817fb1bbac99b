package robot

import (
	"encoding/json"
	"os"
)

const DefaultConfigFile = "robodog.json"

// Config holds the robot configuration
type Config struct {
	Actuator  ActuatorConfig    `json:"actuator"`
	Link      LinkConfig        `json:"link"`
	Sensor    SensorConfig      `json:"sensor"`
	Gait      GaitConfig        `json:"gait"`
	Avoidance AvoidanceConfig   `json:"avoidance"`
	Wait      WaitConfig        `json:"wait"`
	Keys      map[string]string `json:"keys,omitempty"`
	Telemetry TelemetryConfig   `json:"telemetry"`
}

// ActuatorConfig selects the leg servo bus. An empty port runs the legs on
// the simulated PWM generator.
type ActuatorConfig struct {
	Port   string `json:"port,omitempty"`
	Baud   int    `json:"baud,omitempty"`
	Servos Servos `json:"servos,omitempty"`
}

// LinkConfig configures the remote command channels.
type LinkConfig struct {
	SerialPort string `json:"serial_port,omitempty"`
	SerialBaud int    `json:"serial_baud,omitempty"`
	WebSocket  string `json:"websocket,omitempty"` // listen address, e.g. ":8080"
}

// SensorConfig configures the ultrasonic rangefinder.
type SensorConfig struct {
	Port string `json:"port,omitempty"`
}

// GaitConfig holds walking parameters and leg calibration.
type GaitConfig struct {
	Speed        int         `json:"speed"`
	ProtectedLeg Leg         `json:"protected_leg"`
	Timing       string      `json:"timing"` // timing preset name
	Calibration  Calibration `json:"calibration"`

	// Optional overrides of the preset, in milliseconds.
	StaggerMS      *int `json:"stagger_ms,omitempty"`
	WalkBaseMS     *int `json:"walk_base_ms,omitempty"`
	WalkPerSpeedMS *int `json:"walk_per_speed_ms,omitempty"`
	TurnBaseMS     *int `json:"turn_base_ms,omitempty"`
	TurnPerSpeedMS *int `json:"turn_per_speed_ms,omitempty"`
}

// AvoidanceConfig holds the obstacle avoidance parameters.
type AvoidanceConfig struct {
	Preset        string   `json:"preset"`
	Near          *float64 `json:"near,omitempty"`
	Far           *float64 `json:"far,omitempty"`
	DebounceLimit *int     `json:"debounce_limit,omitempty"`
	RetryDelayMS  int      `json:"retry_delay_ms"`
	LongPauseMS   int      `json:"long_pause_ms"`
}

// WaitConfig holds the cooperative wait quantum.
type WaitConfig struct {
	QuantumMS int `json:"quantum_ms"`
}

// TelemetryConfig enables the event database when Path is set.
type TelemetryConfig struct {
	Path string `json:"path,omitempty"`
}

// DefaultConfig returns a configuration that runs fully simulated.
func DefaultConfig() *Config {
	return &Config{
		Actuator: ActuatorConfig{
			Baud:   1_000_000,
			Servos: DefaultServos(),
		},
		Link: LinkConfig{
			SerialBaud: 9600,
		},
		Gait: GaitConfig{
			Speed:        5,
			ProtectedLeg: DefaultProtectedLeg,
			Timing:       "staggered",
			Calibration:  DefaultCalibration(),
		},
		Avoidance: AvoidanceConfig{
			Preset:       "debounced",
			RetryDelayMS: 50,
			LongPauseMS:  800,
		},
		Wait: WaitConfig{
			QuantumMS: 20,
		},
		Keys: map[string]string{
			"1": "teleop",
			"2": "avoidance",
			"3": "hello",
			"4": "idle",
		},
	}
}

// LoadConfigFrom loads configuration from a specific file. Missing sections
// keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the given config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
