// Package transport implements the push side of the election backend: a
// WebSocket connection carrying named JSON event frames, with a single
// writer goroutine and a keepalive ping loop.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/logger"
)

// ErrClosed is returned when emitting on a closed connection.
var ErrClosed = errors.New("push connection closed")

// Frame is the wire envelope of every push message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// FrameHandler receives each decoded frame in arrival order.
type FrameHandler func(event string, data json.RawMessage)

// Conn is a single push connection to the backend.
type Conn struct {
	mu sync.Mutex

	conn      *websocket.Conn
	sessionID string
	closed    bool

	writeCh chan []byte
	log     *logger.Logger

	pingInterval time.Duration
}

// Dial connects to the backend's push endpoint. The dial is bounded by ctx;
// callers apply the connect timeout.
func Dial(ctx context.Context, rawURL string, log *logger.Logger) (*Conn, error) {
	sessionID := uuid.NewString()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing push url: %w", err)
	}
	q := u.Query()
	q.Set("sid", sessionID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{})
	if err != nil {
		return nil, fmt.Errorf("dialing push endpoint: %w", err)
	}

	conn.SetReadLimit(128 << 10) // 128 KB

	return &Conn{
		conn:         conn,
		sessionID:    sessionID,
		writeCh:      make(chan []byte, 64),
		log:          log,
		pingInterval: constants.DefaultPingInterval,
	}, nil
}

// SessionID returns the random client session id sent with the dial.
func (c *Conn) SessionID() string {
	return c.sessionID
}

// Emit queues an event frame for the writer goroutine. It never blocks.
func (c *Conn) Emit(event string, data any) error {
	frame := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshaling %s payload: %w", event, err)
		}
		frame.Data = raw
	}

	encoded, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshaling %s frame: %w", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.writeCh <- encoded:
		return nil
	default:
		return fmt.Errorf("write channel full, dropping %s", event)
	}
}

// Run starts the write and ping loops and reads frames until the context is
// cancelled or the connection fails. Frames are passed to handle on the
// calling goroutine. Undecodable frames are logged and skipped.
func (c *Conn) Run(ctx context.Context, handle FrameHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writeLoop(ctx)
	go c.pingLoop(ctx)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading push frame: %w", err)
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			c.log.Warn("Dropping undecodable push frame", "bytes", len(data), "error", err)
			continue
		}

		handle(frame.Event, frame.Data)
	}
}

// Close closes the WebSocket connection. Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.conn.Close(websocket.StatusNormalClosure, "closing") //nolint:errcheck
}

func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.writeCh:
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				c.log.Error("WebSocket write error", "error", err)
			}
		}
	}
}

func (c *Conn) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.pingInterval)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn("No pong from backend, closing push connection", "error", err)
				c.conn.Close(websocket.StatusGoingAway, "ping timeout") //nolint:errcheck
				return
			}
			c.log.Debug("Sent PING")
		}
	}
}
