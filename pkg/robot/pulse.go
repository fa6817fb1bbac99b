package robot

import "fmt"

// Pulse widths in microseconds for a 50 Hz hobby servo.
const (
	MinPulse = 500
	MaxPulse = 2500
)

// PulseWidth converts an angle in degrees [0, 180] to a pulse width in µs.
func PulseWidth(degrees float64) uint16 {
	pulse := degrees/180*2000 + MinPulse
	if pulse < MinPulse {
		pulse = MinPulse
	}
	if pulse > MaxPulse {
		pulse = MaxPulse
	}
	return uint16(pulse)
}

// PWM generates servo pulses on numbered channels.
type PWM interface {
	SetPulse(channel int, micros uint16) error
}

// PulseActuator drives legs through a PWM generator.
type PulseActuator struct {
	pwm PWM
}

// NewPulseActuator wraps a PWM generator.
func NewPulseActuator(pwm PWM) *PulseActuator {
	return &PulseActuator{pwm: pwm}
}

// SetChannelAngle sets the pulse width of a leg channel.
func (a *PulseActuator) SetChannelAngle(channel int, degrees float64) error {
	if !Leg(channel).Valid() {
		return fmt.Errorf("unknown channel %d", channel)
	}
	if err := a.pwm.SetPulse(channel, PulseWidth(degrees)); err != nil {
		return fmt.Errorf("set pulse on channel %d: %w", channel, err)
	}
	return nil
}
