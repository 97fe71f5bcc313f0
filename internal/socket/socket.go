// Package socket implements the broadcast transport for live comment
// delivery over a websocket connection.
//
// One [Client] holds one process-wide connection shared by every view; room
// membership is the only per-view state. The server pushes newComment events
// into rooms scoped by book, and clients enter and leave rooms with
// joinBookRoom and leaveBookRoom messages.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Event names on the wire.
const (
	EventJoinRoom   = "joinBookRoom"
	EventLeaveRoom  = "leaveBookRoom"
	EventNewComment = "newComment"
)

// envelope is the framing for every message in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is a websocket broadcast client. It satisfies
// comments.BroadcastChannel.
type Client struct {
	url    string
	logger *log.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]func(models.Comment)

	onDisconnect func(error)
}

// NewClient creates a client for the broadcast endpoint at url. The client
// is not connected until [Client.Connect] is called.
func NewClient(url string, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Client{
		url:      url,
		logger:   logger,
		handlers: map[string]func(models.Comment){},
	}
}

// OnDisconnect registers a callback invoked once when the connection drops.
// Used to switch comment views over to the polling fallback.
func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// Connect dials the broadcast endpoint and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to broadcast server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Join enters the room for bookID and registers fn for comments pushed to
// it. Joining a room already held replaces the handler without resending the
// join message.
func (c *Client) Join(bookID string, fn func(models.Comment)) error {
	c.mu.Lock()
	_, rejoin := c.handlers[bookID]
	c.handlers[bookID] = fn
	c.mu.Unlock()

	if rejoin {
		return nil
	}
	return c.send(EventJoinRoom, bookID)
}

// Leave exits the room for bookID and detaches its handler. Leaving a room
// not held is a no-op.
func (c *Client) Leave(bookID string) error {
	c.mu.Lock()
	_, held := c.handlers[bookID]
	delete(c.handlers, bookID)
	c.mu.Unlock()

	if !held {
		return nil
	}
	return c.send(EventLeaveRoom, bookID)
}

// Close shuts the connection down. Registered handlers are dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.handlers = map[string]func(models.Comment){}
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// send writes one enveloped message. The lock serializes writers; the
// websocket allows only one at a time.
func (c *Client) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("%w: broadcast connection is down", shared.ErrChannelClosed)
	}
	if err := c.conn.WriteJSON(envelope{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

// readLoop dispatches inbound events until the connection drops.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		switch msg.Event {
		case EventNewComment:
			var comment models.Comment
			if err := json.Unmarshal(msg.Data, &comment); err != nil {
				c.logger.Warn("dropping malformed comment event", "error", err)
				continue
			}
			c.dispatch(comment)
		default:
			c.logger.Debug("ignoring unknown event", "event", msg.Event)
		}
	}
}

func (c *Client) dispatch(comment models.Comment) {
	c.mu.Lock()
	fn := c.handlers[comment.BookID]
	c.mu.Unlock()

	if fn != nil {
		fn(comment)
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// Close already swapped the connection out.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	fn := c.onDisconnect
	c.mu.Unlock()

	conn.Close()
	c.logger.Warn("broadcast connection lost", "error", err)
	if fn != nil {
		fn(err)
	}
}
