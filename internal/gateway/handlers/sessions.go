package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"vellum/internal/bridge"
	"vellum/internal/session"
	"vellum/pkg/logger"
)

// SessionSummary is one entry of the session list. A session appears when it
// has relay clients, a server-side preview, or both.
type SessionSummary struct {
	ID        string     `json:"id"`
	Authors   int        `json:"authors"`
	Frames    int        `json:"frames"`
	Ready     bool       `json:"ready"`
	Applied   uint64     `json:"applied"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// SessionDetail is the state of one session's server-side preview.
type SessionDetail struct {
	ID         string          `json:"id"`
	Definition json.RawMessage `json:"definition,omitempty"`
	Styles     string          `json:"styles"`
	Selection  string          `json:"selection,omitempty"`
	Applied    uint64          `json:"applied"`
	Rendered   uint64          `json:"rendered"`
	Authors    int             `json:"authors"`
	Frames     int             `json:"frames"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SessionHandler serves the session API and the HTML snapshot of a preview.
type SessionHandler struct {
	sessions *session.Manager
	hub      *bridge.Hub
}

// NewSessionHandler creates a session handler. hub may be nil.
func NewSessionHandler(sessions *session.Manager, hub *bridge.Hub) *SessionHandler {
	return &SessionHandler{sessions: sessions, hub: hub}
}

// RegisterRoutes registers the session routes.
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/preview/{id}", h.Preview).Methods(http.MethodGet, http.MethodHead)
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	byID := make(map[string]*SessionSummary)
	entry := func(id string) *SessionSummary {
		s, ok := byID[id]
		if !ok {
			s = &SessionSummary{ID: id}
			byID[id] = s
		}
		return s
	}

	if h.hub != nil {
		for _, info := range h.hub.Sessions() {
			s := entry(info.ID)
			s.Authors = info.Authors
			s.Frames = info.Frames
			s.Ready = info.Ready
		}
	}
	for _, info := range h.sessions.List() {
		s := entry(info.ID)
		s.Applied = info.Applied
		updated := info.UpdatedAt
		s.UpdatedAt = &updated
	}

	list := make([]SessionSummary, 0, len(byID))
	for _, s := range byID {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	SendJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.sessions.Get(id)
	if err != nil {
		sendSessionError(w, id, err)
		return
	}

	info := s.Info(true)
	detail := SessionDetail{
		ID:        info.ID,
		Selection: info.Selection,
		Applied:   info.Applied,
		Rendered:  info.Rendered,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
	if info.State != nil {
		detail.Definition = info.State.Definition
		detail.Styles = info.State.Styles
	}
	if h.hub != nil {
		if relay, ok := h.hub.Session(id); ok {
			detail.Authors = relay.Authors
			detail.Frames = relay.Frames
		}
	}
	SendJSON(w, http.StatusOK, detail)
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.sessions.Delete(id); err != nil {
		sendSessionError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /preview/{id}: the session's document as HTML.
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.sessions.Get(id)
	if err != nil {
		sendSessionError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if err := s.Render(w); err != nil {
		// headers are gone, nothing left but to log
		logSessionError(id, err)
	}
}

func sendSessionError(w http.ResponseWriter, id string, err error) {
	code := CodeFor(err)
	msg := err.Error()
	switch code {
	case ErrCodeNotFound:
		msg = "session not found: " + id
	case ErrCodeServiceUnavailable:
		msg = "server is shutting down"
	default:
		logSessionError(id, err)
	}
	SendError(w, code, msg)
}

func logSessionError(id string, err error) {
	logger.Warn().Err(err).Str("session", id).Msg("Session request failed")
}
