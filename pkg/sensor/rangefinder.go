// Package sensor reads the ultrasonic rangefinder over a serial line.
//
// The sensor streams 4-byte frames: 0xFF, distance high byte, distance low
// byte, checksum. Distance is in millimetres and the checksum is the low byte
// of the sum of the first three bytes.
package sensor

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/gwillem/robodog/pkg/monitoring"
)

// Failure codes returned by RawMeasureDistance.
const (
	// NoEcho means no data arrived within the measurement window.
	NoEcho = -1.0
	// EchoStuck means data arrived but never formed a valid frame.
	EchoStuck = -2.0
)

const (
	frameHeader = 0xFF
	frameLen    = 4

	DefaultBaud   = 9600
	DefaultWindow = 60 * time.Millisecond
)

var (
	ErrHeader   = errors.New("bad frame header")
	ErrChecksum = errors.New("frame checksum mismatch")
	ErrShort    = errors.New("short frame")
)

// ParseFrame decodes one frame and returns the distance in cm.
func ParseFrame(f []byte) (float64, error) {
	if len(f) < frameLen {
		return 0, ErrShort
	}
	if f[0] != frameHeader {
		return 0, ErrHeader
	}
	if sum := byte(int(f[0]) + int(f[1]) + int(f[2])); sum != f[3] {
		return 0, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, f[3], sum)
	}
	mm := int(f[1])<<8 | int(f[2])
	return float64(mm) / 10, nil
}

// EncodeFrame builds the frame for a distance in millimetres.
func EncodeFrame(mm uint16) []byte {
	hi, lo := byte(mm>>8), byte(mm)
	return []byte{frameHeader, hi, lo, byte(int(frameHeader) + int(hi) + int(lo))}
}

// Port is the serial port behind the rangefinder.
type Port interface {
	io.Reader
	io.Closer
}

// Rangefinder measures distance from the frame stream.
type Rangefinder struct {
	port   Port
	window time.Duration
	buf    []byte
	frame  []byte
}

// Open opens the rangefinder on a serial port.
func Open(path string, baud int) (*Rangefinder, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open rangefinder %s: %w", path, err)
	}
	if err := port.SetReadTimeout(10 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return New(port, DefaultWindow), nil
}

// New creates a rangefinder over an open port. window bounds one
// measurement.
func New(port Port, window time.Duration) *Rangefinder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Rangefinder{
		port:   port,
		window: window,
		buf:    make([]byte, 32),
		frame:  make([]byte, 0, frameLen),
	}
}

// RawMeasureDistance drains every byte available within the window and
// returns the newest valid distance in cm, NoEcho when nothing arrived, or
// EchoStuck when bytes arrived but no valid frame could be assembled. A
// frame torn at the end of the drain is completed on the next call.
func (r *Rangefinder) RawMeasureDistance() float64 {
	deadline := time.Now().Add(r.window)
	sawData := false
	latest, have := 0.0, false

	for {
		n, err := r.port.Read(r.buf)
		for _, b := range r.buf[:n] {
			sawData = true
			if d, ok := r.push(b); ok {
				latest, have = d, true
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				monitoring.Logf("sensor: read: %v", err)
			}
			break
		}
		// The stream is drained once a read comes back empty.
		if n == 0 && have {
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
	}

	switch {
	case have:
		return latest
	case sawData:
		return EchoStuck
	default:
		return NoEcho
	}
}

// push adds b to the frame being assembled and reports a completed distance.
func (r *Rangefinder) push(b byte) (float64, bool) {
	if len(r.frame) == 0 && b != frameHeader {
		return 0, false
	}
	r.frame = append(r.frame, b)
	if len(r.frame) < frameLen {
		return 0, false
	}

	d, err := ParseFrame(r.frame)
	if err == nil {
		r.frame = r.frame[:0]
		return d, true
	}

	// Resync on the next header byte inside the rejected frame.
	rest := append([]byte(nil), r.frame[1:]...)
	r.frame = r.frame[:0]
	for i, c := range rest {
		if c == frameHeader {
			r.frame = append(r.frame, rest[i:]...)
			break
		}
	}
	return 0, false
}

// Close closes the port.
func (r *Rangefinder) Close() error {
	return r.port.Close()
}
