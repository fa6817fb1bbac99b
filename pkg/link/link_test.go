package link

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu  sync.Mutex
	got []byte
}

func (s *sink) Put(b byte) {
	s.mu.Lock()
	s.got = append(s.got, b)
	s.mu.Unlock()
}

func (s *sink) bytes() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.got)
}

// fakePort reads from a fixed input and records writes.
type fakePort struct {
	in     io.Reader
	out    bytes.Buffer
	closed bool
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *fakePort) Close() error                { p.closed = true; return nil }

func TestAccept(t *testing.T) {
	for b := 0; b < 256; b++ {
		want := b >= 'A' && b <= 'Z'
		assert.Equal(t, want, Accept(byte(b)), "byte %d", b)
	}
}

func TestSerial_RunFiltersBytes(t *testing.T) {
	port := &fakePort{in: strings.NewReader("F\r\nlx7L?RR")}
	s := &sink{}
	link := NewSerial(port, s)

	require.NoError(t, link.Run(context.Background()))
	assert.Equal(t, "FLRR", s.bytes())
	assert.Equal(t, uint64(4), link.Received())
	assert.Equal(t, uint64(6), link.Dropped())
}

func TestSerial_RunStopsOnCancel(t *testing.T) {
	port := &fakePort{in: strings.NewReader("F")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSerial(port, &sink{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSerial_Acknowledge(t *testing.T) {
	port := &fakePort{in: strings.NewReader("")}
	link := NewSerial(port, &sink{})

	link.Acknowledge("CMD: Forward")
	link.Acknowledge("Status: Mode=teleop, Speed=5")
	assert.Equal(t, "CMD: Forward\r\nStatus: Mode=teleop, Speed=5\r\n", port.out.String())

	require.NoError(t, link.Close())
	assert.True(t, port.closed)
}

type lines struct{ got []string }

func (l *lines) Acknowledge(line string) { l.got = append(l.got, line) }

func TestMulti(t *testing.T) {
	a, b := &lines{}, &lines{}
	Multi{a, b}.Acknowledge("CMD: Stop")
	assert.Equal(t, []string{"CMD: Stop"}, a.got)
	assert.Equal(t, []string{"CMD: Stop"}, b.got)
}

// startHub serves a hub on a random local port.
func startHub(t *testing.T, h *Hub) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := NewApp(h)
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws/command"
}

func TestHub_WebSocketCommands(t *testing.T) {
	s := &sink{}
	h := NewHub(s)
	url := startHub(t, h)

	ws, _, err := websocket.DefaultDialer.Dial(url+"/panel", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return h.OperatorCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("F\n")))
	require.Eventually(t, func() bool { return s.bytes() == "F" }, time.Second, 10*time.Millisecond)

	h.Acknowledge("CMD: Forward")
	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "CMD: Forward", string(msg))

	require.Eventually(t, func() bool { return h.Stats().AcksSent == 1 }, time.Second, 10*time.Millisecond)
	stats := h.Stats()
	assert.Equal(t, uint64(1), stats.CommandsIn)
	assert.Equal(t, uint64(1), stats.BytesDropped)
	assert.Zero(t, stats.AcksDropped)

	ws.Close()
	require.Eventually(t, func() bool { return h.OperatorCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_AcknowledgeDoesNotWaitForStalledOperator(t *testing.T) {
	h := NewHub(&sink{})
	h.writeWait = 200 * time.Millisecond
	url := startHub(t, h)

	// This operator never reads, so its socket buffers fill up.
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return h.OperatorCount() == 1 }, time.Second, 10*time.Millisecond)

	line := strings.Repeat("A", 256*1024)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 2000; i++ {
			h.Acknowledge(line)
		}
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Acknowledge blocked on an operator that does not read")
	}
	assert.NotZero(t, h.Stats().AcksDropped)

	// The stalled write times out and the operator is dropped.
	require.Eventually(t, func() bool {
		h.Acknowledge(line)
		return h.OperatorCount() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestHub_RequiresUpgrade(t *testing.T) {
	app := NewApp(NewHub(&sink{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/command", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHub_CommandAPI(t *testing.T) {
	s := &sink{}
	app := NewApp(NewHub(s))

	resp, err := app.Test(httptest.NewRequest("POST", "/api/command/L", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/api/command/l", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, "L", s.bytes())
}

func TestHub_StatusAPI(t *testing.T) {
	h := NewHub(&sink{})
	app := NewApp(h)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	h.SetStatus(map[string]any{"mode": "teleop", "speed": 5})
	resp, err = app.Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "teleop", got["mode"])
	assert.Equal(t, float64(5), got["speed"])
}

func TestClient_SendAndAck(t *testing.T) {
	s := &sink{}
	h := NewHub(s)
	url := startHub(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool { return h.OperatorCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, c.Send("UD"))
	require.Eventually(t, func() bool { return s.bytes() == "UD" }, time.Second, 10*time.Millisecond)

	h.Acknowledge("CMD: Speed Up")
	select {
	case line := <-c.Acks():
		assert.Equal(t, "CMD: Speed Up", line)
	case <-time.After(time.Second):
		t.Fatal("no acknowledgment received")
	}

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
