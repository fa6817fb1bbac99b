// Package link carries remote commands into the command mailbox and
// acknowledgment lines back to the operator.
//
// Every link delivers one command per byte. Only uppercase ASCII letters are
// passed on; anything else on the wire (line endings, lowercase, noise) is
// dropped before it reaches the mailbox.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/gwillem/robodog/pkg/monitoring"
)

// Sink receives command bytes. mailbox.Mailbox implements it.
type Sink interface {
	Put(b byte)
}

// Port is the minimal serial port interface, so links can be tested
// without hardware.
type Port interface {
	io.ReadWriter
	io.Closer
}

// Accept reports whether b is passed on as a command.
func Accept(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// readTimeout bounds a single serial read so Run notices cancellation.
const readTimeout = 100 * time.Millisecond

// Serial is a command link over a serial line, typically a Bluetooth UART
// module.
type Serial struct {
	port Port
	sink Sink

	mu       sync.Mutex // serializes acknowledgment writes
	received atomic.Uint64
	dropped  atomic.Uint64
}

// OpenSerial opens a serial port and returns a link feeding sink.
func OpenSerial(path string, baud int, sink Sink) (*Serial, error) {
	if baud <= 0 {
		baud = 9600
	}
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open command port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return NewSerial(port, sink), nil
}

// NewSerial creates a link over an open port.
func NewSerial(port Port, sink Sink) *Serial {
	return &Serial{port: port, sink: sink}
}

// Run reads commands until ctx is done or the port reaches EOF. A read that
// returns no data is a timeout and is retried.
func (s *Serial) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.port.Read(buf)
		for _, b := range buf[:n] {
			if !Accept(b) {
				s.dropped.Add(1)
				continue
			}
			s.received.Add(1)
			s.sink.Put(b)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read command port: %w", err)
		}
	}
}

// Acknowledge writes line to the operator, terminated by CRLF.
func (s *Serial) Acknowledge(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.port, line+"\r\n"); err != nil {
		monitoring.Logf("link: serial ack: %v", err)
	}
}

// Received returns the number of accepted command bytes.
func (s *Serial) Received() uint64 {
	return s.received.Load()
}

// Dropped returns the number of filtered bytes.
func (s *Serial) Dropped() uint64 {
	return s.dropped.Load()
}

// Close closes the port.
func (s *Serial) Close() error {
	return s.port.Close()
}

// Acknowledger receives acknowledgment lines.
type Acknowledger interface {
	Acknowledge(line string)
}

// Multi fans acknowledgment lines out to several links.
type Multi []Acknowledger

// Acknowledge sends line to every link.
func (m Multi) Acknowledge(line string) {
	for _, a := range m {
		a.Acknowledge(line)
	}
}
