package bridge

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vellum/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024 * 1024 // 1MB

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Preview frames are usually served from another origin than the
		// authoring tool.
		return true
	},
}

// Client is one websocket connection on the server side of the relay.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	session     string
	role        Role
	id          string
	connectedAt time.Time
}

// NewClient creates a new client.
func NewClient(hub *Hub, conn *websocket.Conn, session string, role Role) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		session:     session,
		role:        role,
		id:          uuid.New().String(),
		connectedAt: time.Now(),
	}
}

// ID returns the client's connection id.
func (c *Client) ID() string { return c.id }

// readPump pumps messages from the WebSocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.log.Error().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			break
		}
		c.handleMessage(message)
	}
}

// handleMessage processes one incoming message. Authors send preview payloads,
// frames send readiness; both may ping.
func (c *Client) handleMessage(message []byte) {
	if ctrl, ok := protocol.ParseControl(message); ok {
		switch ctrl.Type {
		case protocol.TypePing:
			c.hub.pong(c)
		case protocol.TypeReady:
			if c.role == RoleFrame {
				c.hub.frameReady(c)
			}
		default:
			c.hub.log.Debug().
				Str("client_id", c.id).
				Str("type", ctrl.Type).
				Msg("Ignoring control message")
		}
		return
	}

	if c.role != RoleAuthor {
		c.hub.log.Debug().Str("client_id", c.id).Msg("Ignoring payload from frame")
		return
	}

	c.hub.log.Debug().
		Str("client_id", c.id).
		Str("session", c.session).
		Int("bytes", len(message)).
		Msg("Relaying preview message")
	c.hub.handle(c.session, message)
	c.hub.Relay(c.session, message)
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Error().Err(err).Str("client_id", c.id).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ConnectHandler is called once a client has joined a session.
type ConnectHandler func(session string, role Role)

// ServeWs handles GET /ws?session=<id>&role=author|frame. Authors without a
// session get a new one; frames must name theirs.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, onConnect ConnectHandler) {
	q := r.URL.Query()
	role, ok := ParseRole(q.Get("role"))
	if q.Get("role") == "" {
		role, ok = RoleAuthor, true
	}
	if !ok {
		http.Error(w, "role must be author or frame", http.StatusBadRequest)
		return
	}
	session := q.Get("session")
	if session == "" {
		if role == RoleFrame {
			http.Error(w, "session is required for frames", http.StatusBadRequest)
			return
		}
		session = uuid.New().String()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(hub, conn, session, role)
	if role == RoleAuthor {
		client.send <- protocol.Control{Type: protocol.TypeSession, Session: session}.Marshal()
	}
	if !hub.Register(client) {
		conn.Close()
		return
	}
	if onConnect != nil {
		onConnect(session, role)
	}

	go client.writePump()
	go client.readPump()
}
