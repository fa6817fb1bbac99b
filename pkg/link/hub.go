package link

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/gwillem/robodog/pkg/monitoring"
)

const (
	// operatorQueue is the number of ack lines buffered per operator.
	operatorQueue = 64
	// DefaultWriteWait bounds one websocket write. An operator whose write
	// times out is disconnected.
	DefaultWriteWait = 2 * time.Second
)

// operator is one connected websocket client. Only writePump writes to conn.
type operator struct {
	id        string
	conn      *websocket.Conn
	connected time.Time
	send      chan string
	done      chan struct{}
}

func (o *operator) writePump(wait time.Duration, sent *atomic.Uint64) {
	defer close(o.done)
	for line := range o.send {
		o.conn.SetWriteDeadline(time.Now().Add(wait))
		if err := o.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			monitoring.Logf("link: ack to %s: %v", o.id, err)
			// Unblocks the read loop so the operator is removed.
			o.conn.Close()
			return
		}
		sent.Add(1)
	}
	o.conn.SetWriteDeadline(time.Now().Add(wait))
	o.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// HubStats counts hub traffic.
type HubStats struct {
	Operators    int    `json:"operators"`
	CommandsIn   uint64 `json:"commands_in"`
	AcksSent     uint64 `json:"acks_sent"`
	AcksDropped  uint64 `json:"acks_dropped"`
	BytesDropped uint64 `json:"bytes_dropped"`
}

// Hub is the websocket command link. Each text or binary message from an
// operator is treated as a sequence of command bytes; acknowledgment lines
// are broadcast to every connected operator. Acknowledge never blocks: lines
// for an operator whose queue is full are dropped.
type Hub struct {
	sink      Sink
	writeWait time.Duration

	mu        sync.RWMutex
	operators map[string]*operator
	status    any

	commandsIn  atomic.Uint64
	acksSent    atomic.Uint64
	acksDropped atomic.Uint64
	dropped     atomic.Uint64
}

// NewHub creates a hub feeding sink.
func NewHub(sink Sink) *Hub {
	return &Hub{
		sink:      sink,
		writeWait: DefaultWriteWait,
		operators: make(map[string]*operator),
	}
}

// NewApp returns a fiber app with the hub's websocket and API routes.
func NewApp(h *Hub) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	h.RegisterRoutes(app)
	h.RegisterAPIRoutes(app.Group("/api"))
	return app
}

// RegisterRoutes registers the websocket endpoint on a fiber app.
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/command", websocket.New(h.handleOperator))
	app.Get("/ws/command/:id", websocket.New(h.handleOperator))
}

// RegisterAPIRoutes registers the HTTP API on a router group.
func (h *Hub) RegisterAPIRoutes(r fiber.Router) {
	r.Get("/status", func(c *fiber.Ctx) error {
		h.mu.RLock()
		status := h.status
		h.mu.RUnlock()
		if status == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(status)
	})

	r.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.Stats())
	})

	r.Post("/command/:cmd", func(c *fiber.Ctx) error {
		cmd := c.Params("cmd")
		if n := h.deliver([]byte(cmd)); n == 0 {
			return c.Status(fiber.StatusBadRequest).SendString("no command bytes in " + cmd)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})
}

// SetStatus stores the value served by GET /api/status.
func (h *Hub) SetStatus(v any) {
	h.mu.Lock()
	h.status = v
	h.mu.Unlock()
}

func (h *Hub) handleOperator(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.New().String()
	}

	op := &operator{
		id:        id,
		conn:      c,
		connected: time.Now(),
		send:      make(chan string, operatorQueue),
		done:      make(chan struct{}),
	}
	go op.writePump(h.writeWait, &h.acksSent)

	h.mu.Lock()
	if prev, ok := h.operators[id]; ok {
		// A reconnect under the same id replaces the stale connection.
		prev.conn.Close()
	}
	h.operators[id] = op
	count := len(h.operators)
	h.mu.Unlock()
	monitoring.Logf("link: operator %s connected (total: %d)", id, count)

	defer func() {
		h.mu.Lock()
		if h.operators[id] == op {
			delete(h.operators, id)
		}
		close(op.send)
		h.mu.Unlock()
		// The connection is released when the handler returns.
		<-op.done
		monitoring.Logf("link: operator %s disconnected", id)
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		h.deliver(msg)
	}
}

// deliver passes the accepted bytes of msg to the sink and returns how many
// were accepted.
func (h *Hub) deliver(msg []byte) int {
	n := 0
	for _, b := range msg {
		if !Accept(b) {
			h.dropped.Add(1)
			continue
		}
		h.commandsIn.Add(1)
		h.sink.Put(b)
		n++
	}
	return n
}

// Acknowledge queues line for every connected operator.
func (h *Hub) Acknowledge(line string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, op := range h.operators {
		select {
		case op.send <- line:
		default:
			h.acksDropped.Add(1)
		}
	}
}

// OperatorCount returns the number of connected operators.
func (h *Hub) OperatorCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.operators)
}

// Stats returns the hub counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Operators:    h.OperatorCount(),
		CommandsIn:   h.commandsIn.Load(),
		AcksSent:     h.acksSent.Load(),
		AcksDropped:  h.acksDropped.Load(),
		BytesDropped: h.dropped.Load(),
	}
}
