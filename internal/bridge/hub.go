package bridge

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"vellum/internal/protocol"
	"vellum/pkg/logger"
)

// MessageHandler observes every preview payload an author sends, before it
// is relayed to the session's frames.
type MessageHandler func(session string, data []byte)

// SessionInfo describes the clients of one session.
type SessionInfo struct {
	ID      string `json:"id"`
	Authors int    `json:"authors"`
	Frames  int    `json:"frames"`
	Ready   bool   `json:"ready"`
}

type room struct {
	authors map[*Client]bool
	frames  map[*Client]bool
	// readyFrames are the connected frames that announced readiness;
	// external is readiness announced by the server itself.
	readyFrames map[*Client]bool
	external    bool
}

func (r *room) ready() bool {
	return r.external || len(r.readyFrames) > 0
}

func (r *room) empty() bool {
	return len(r.authors) == 0 && len(r.frames) == 0 && !r.external
}

type envelopeKind int

const (
	kindRelay envelopeKind = iota
	kindFrameReady
	kindReady
	kindForget
	kindPong
)

type envelope struct {
	kind    envelopeKind
	session string
	data    []byte
	from    *Client
}

// Hub maintains the set of active clients and relays messages per session.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]*room

	register   chan *Client
	unregister chan *Client
	relay      chan *envelope
	done       chan struct{}

	mu      sync.RWMutex
	handler MessageHandler
	log     zerolog.Logger
}

// NewHub creates a new Hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]*room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		relay:      make(chan *envelope, 256),
		done:       make(chan struct{}),
		log:        logger.Component("bridge"),
	}
}

// SetMessageHandler sets the callback for author payloads.
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

func (h *Hub) handle(session string, data []byte) {
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	if handler != nil {
		handler(session, data)
	}
}

// Run starts the hub's main loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
		}
		h.clients = make(map[*Client]bool)
		h.rooms = make(map[string]*room)
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			r := h.roomLocked(client.session)
			if client.role == RoleAuthor {
				r.authors[client] = true
				if r.ready() {
					h.sendLocked(client, readyMessage(client.session))
				}
			} else {
				r.frames[client] = true
			}
			h.mu.Unlock()
			h.log.Info().
				Str("client_id", client.id).
				Str("session", client.session).
				Str("role", string(client.role)).
				Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()
			h.log.Info().Str("client_id", client.id).Msg("WebSocket client disconnected")

		case msg := <-h.relay:
			h.mu.Lock()
			h.dispatchLocked(msg)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) dispatchLocked(msg *envelope) {
	if msg.kind == kindPong {
		if h.clients[msg.from] {
			h.sendLocked(msg.from, protocol.Control{Type: protocol.TypePong}.Marshal())
		}
		return
	}

	r := h.roomLocked(msg.session)
	defer func() {
		if r.empty() {
			delete(h.rooms, msg.session)
		}
	}()

	switch msg.kind {
	case kindRelay:
		for client := range r.frames {
			h.sendLocked(client, msg.data)
		}
		return
	case kindFrameReady:
		if !h.clients[msg.from] {
			return
		}
		r.readyFrames[msg.from] = true
	case kindReady:
		r.external = true
	case kindForget:
		r.external = false
		return
	}

	data := readyMessage(msg.session)
	for client := range r.authors {
		h.sendLocked(client, data)
	}
}

func (h *Hub) roomLocked(session string) *room {
	r, ok := h.rooms[session]
	if !ok {
		r = &room{
			authors:     make(map[*Client]bool),
			frames:      make(map[*Client]bool),
			readyFrames: make(map[*Client]bool),
		}
		h.rooms[session] = r
	}
	return r
}

// sendLocked queues data for client. A client that cannot keep up is
// disconnected rather than silently missing a message.
func (h *Hub) sendLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn().Str("client_id", client.id).Msg("WebSocket client too slow, disconnecting")
		h.dropLocked(client)
	}
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	if r, ok := h.rooms[client.session]; ok {
		delete(r.authors, client)
		delete(r.frames, client)
		delete(r.readyFrames, client)
		if r.empty() {
			delete(h.rooms, client.session)
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Relay sends a preview payload to every frame of session.
func (h *Hub) Relay(session string, data []byte) {
	h.enqueue(&envelope{kind: kindRelay, session: session, data: data})
}

// Ready announces a server-side frame for session. Its authors are told now,
// and authors connecting later are told on arrival, until Forget.
func (h *Hub) Ready(session string) {
	h.enqueue(&envelope{kind: kindReady, session: session})
}

// Forget withdraws the readiness announced by Ready.
func (h *Hub) Forget(session string) {
	h.enqueue(&envelope{kind: kindForget, session: session})
}

// frameReady records that a connected frame announced readiness.
func (h *Hub) frameReady(client *Client) {
	h.enqueue(&envelope{kind: kindFrameReady, session: client.session, from: client})
}

// pong answers a client's ping through the hub, which owns client.send.
func (h *Hub) pong(client *Client) {
	h.enqueue(&envelope{kind: kindPong, session: client.session, from: client})
}

func (h *Hub) enqueue(e *envelope) {
	select {
	case h.relay <- e:
	case <-h.done:
	}
}

func readyMessage(session string) []byte {
	return protocol.Control{Type: protocol.TypeReady, Session: session}.Marshal()
}

// Sessions lists the sessions that have clients, sorted by id.
func (h *Hub) Sessions() []SessionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]SessionInfo, 0, len(h.rooms))
	for id, r := range h.rooms {
		out = append(out, SessionInfo{ID: id, Authors: len(r.authors), Frames: len(r.frames), Ready: r.ready()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Session returns the clients of one session.
func (h *Hub) Session(id string) (SessionInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	if !ok {
		return SessionInfo{ID: id}, false
	}
	return SessionInfo{ID: id, Authors: len(r.authors), Frames: len(r.frames), Ready: r.ready()}, true
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
