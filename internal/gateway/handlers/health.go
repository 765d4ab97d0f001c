package handlers

import (
	"net/http"
	"sync/atomic"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string     `json:"status"`
	Version   string     `json:"version"`
	Uptime    int64      `json:"uptime"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Sessions  int        `json:"sessions"`
	Clients   int        `json:"clients"`
}

// Counter reports a live count for the health check.
type Counter func() int

// Health serves GET /health. Nil counters report zero.
type Health struct {
	Version  string
	Sessions Counter
	Clients  Counter

	started atomic.Int64
}

// MarkStarted records when the server began serving; uptime counts from it.
func (h *Health) MarkStarted(t time.Time) {
	h.started.Store(t.UnixNano())
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: h.Version}
	if ns := h.started.Load(); ns != 0 {
		started := time.Unix(0, ns)
		resp.StartedAt = &started
		resp.Uptime = int64(time.Since(started).Seconds())
	}
	if h.Sessions != nil {
		resp.Sessions = h.Sessions()
	}
	if h.Clients != nil {
		resp.Clients = h.Clients()
	}
	SendJSON(w, http.StatusOK, resp)
}
