package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vellum/internal/protocol"
)

// Conn is the client side of a relay connection.
type Conn struct {
	conn    *websocket.Conn
	role    Role
	session string

	writeMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
	messages  chan []byte
	done      chan struct{}
	err       error
}

// WSURL turns a server address (host:port, http(s):// or ws(s):// URL) into
// the relay endpoint URL for session and role.
func WSURL(server, session string, role Role) (string, error) {
	if !strings.Contains(server, "://") {
		server = "ws://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := url.Values{}
	if session != "" {
		q.Set("session", session)
	}
	q.Set("role", string(role))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial connects to the relay. An author that names no session joins a new
// one, whose id Session returns once Dial succeeds.
func Dial(ctx context.Context, server, session string, role Role) (*Conn, error) {
	endpoint, err := WSURL(server, session, role)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Conn{
		conn:     ws,
		role:     role,
		session:  session,
		ready:    make(chan struct{}),
		messages: make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}

	if role == RoleAuthor {
		// The server names the session before anything else.
		if deadline, ok := ctx.Deadline(); ok {
			_ = ws.SetReadDeadline(deadline)
		}
		_, data, err := ws.ReadMessage()
		_ = ws.SetReadDeadline(time.Time{})
		if err != nil {
			ws.Close()
			return nil, fmt.Errorf("read session: %w", err)
		}
		ctrl, ok := protocol.ParseControl(data)
		if !ok || ctrl.Type != protocol.TypeSession {
			ws.Close()
			return nil, errors.New("bridge: expected session message")
		}
		c.session = ctrl.Session
	}

	go c.readLoop()
	return c, nil
}

// Session returns the session the connection joined.
func (c *Conn) Session() string { return c.session }

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.err = err
			}
			return
		}
		if ctrl, ok := protocol.ParseControl(data); ok {
			if ctrl.Type == protocol.TypeReady {
				c.readyOnce.Do(func() { close(c.ready) })
			}
			continue
		}
		if c.role == RoleFrame {
			c.messages <- data
		}
	}
}

// Messages delivers the preview payloads relayed to a frame, in order. It is
// closed when the connection ends.
func (c *Conn) Messages() <-chan []byte { return c.messages }

// Ready is closed when the server reports a ready frame for the session.
func (c *Conn) Ready() <-chan struct{} { return c.ready }

// WaitReady blocks until a frame of the session is ready.
func (c *Conn) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return c.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) closedErr() error {
	if c.err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, c.err)
	}
	return ErrClosed
}

// Send implements Sender.
func (c *Conn) Send(ctx context.Context, msg protocol.PreviewMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return c.write(ctx, data)
}

// SignalReady announces a frame's readiness to the session's authors.
func (c *Conn) SignalReady(ctx context.Context) error {
	return c.write(ctx, protocol.Control{Type: protocol.TypeReady, Session: c.session}.Marshal())
}

// Ping sends an application level ping.
func (c *Conn) Ping(ctx context.Context) error {
	return c.write(ctx, protocol.Control{Type: protocol.TypePing}.Marshal())
}

func (c *Conn) write(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return c.closedErr()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and waits briefly for the server to answer.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(time.Second):
	}
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return err
}
