package link

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is an operator connection to a robot's websocket hub.
type Client struct {
	conn  *websocket.Conn
	acks  chan string
	errCh chan error

	mu   sync.Mutex
	done chan struct{}
}

// Dial connects to a hub, e.g. "ws://robodog.local:8080/ws/command".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:  conn,
		acks:  make(chan string, 16),
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.acks)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.errCh <- err
			}
			return
		}
		select {
		case c.acks <- string(msg):
		default:
			// Drop if nobody is reading
		}
	}
}

// Send transmits command bytes.
func (c *Client) Send(cmds string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(cmds))
}

// Acks returns acknowledgment lines from the robot. The channel is closed
// when the connection ends.
func (c *Client) Acks() <-chan string {
	return c.acks
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() <-chan error {
	return c.errCh
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	return c.conn.Close()
}
