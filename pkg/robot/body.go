package robot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

const (
	// DefaultWriteTimeout bounds a single position write on the bus. It stays
	// below the wait quantum so a write never delays a cancellation check by
	// a full quantum.
	DefaultWriteTimeout = 15 * time.Millisecond
	// DefaultBusHold is how long writes fail fast after a bus error.
	DefaultBusHold = 250 * time.Millisecond
)

// ErrBusDown is returned for writes skipped after a recent bus error.
var ErrBusDown = errors.New("leg bus unavailable")

// busGate fails writes fast for a while after a bus error, so a four-leg
// pose on a dead bus costs one timeout instead of four.
type busGate struct {
	now  func() time.Time
	hold time.Duration

	mu    sync.Mutex
	until time.Time
}

func newBusGate(hold time.Duration) *busGate {
	return &busGate{now: time.Now, hold: hold}
}

func (g *busGate) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.now().Before(g.until)
}

func (g *busGate) trip() {
	g.mu.Lock()
	g.until = g.now().Add(g.hold)
	g.mu.Unlock()
}

// Body drives the four leg servos over a Feetech serial bus.
type Body struct {
	bus     *feetech.Bus
	group   *feetech.ServoGroup
	servos  Servos
	timeout time.Duration
	gate    *busGate
}

// NewBody opens the bus on port and creates a servo group from the leg ids.
func NewBody(port string, baud int, servos Servos) (*Body, error) {
	if baud <= 0 {
		baud = 1_000_000
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  DefaultWriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, servos.IDs()...)

	return &Body{
		bus:     bus,
		group:   group,
		servos:  servos,
		timeout: DefaultWriteTimeout,
		gate:    newBusGate(DefaultBusHold),
	}, nil
}

// Close closes the bus connection.
func (b *Body) Close() error {
	return b.bus.Close()
}

// Enable enables torque on all leg servos.
func (b *Body) Enable(ctx context.Context) error {
	return b.group.EnableAll(ctx)
}

// Disable disables torque on all leg servos.
func (b *Body) Disable(ctx context.Context) error {
	return b.group.DisableAll(ctx)
}

// SetChannelAngle commands one leg to an angle in degrees. The kernel is
// open-loop: the write is fire-and-forget with a short bus timeout. After a
// failed write, writes return ErrBusDown until DefaultBusHold has passed.
func (b *Body) SetChannelAngle(channel int, degrees float64) error {
	cal, ok := b.servos[Leg(channel)]
	if !ok {
		return fmt.Errorf("unknown channel %d", channel)
	}
	if !b.gate.allow() {
		return fmt.Errorf("write channel %d: %w", channel, ErrBusDown)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	positions := feetech.PositionMap{cal.ID: cal.Denormalize(degrees)}
	if err := b.group.SetPositions(ctx, positions); err != nil {
		b.gate.trip()
		return fmt.Errorf("write channel %d: %w", channel, err)
	}
	return nil
}

// ReadAngles reads the current angle of every leg. Only diagnostics use it;
// motion never depends on read-back.
func (b *Body) ReadAngles(ctx context.Context) (map[Leg]float64, error) {
	raw, err := b.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	angles := make(map[Leg]float64, len(raw))
	for id, pos := range raw {
		leg, cal, ok := b.servos.ByID(id)
		if !ok {
			continue
		}
		angles[leg] = cal.Normalize(pos)
	}
	return angles, nil
}
