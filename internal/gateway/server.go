// Package gateway provides the HTTP gateway server: the websocket relay
// between authoring tools and frames, the session API, HTML snapshots of the
// server-side previews and the browser frame shell.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"vellum/internal/bridge"
	"vellum/internal/config"
	"vellum/internal/gateway/handlers"
	"vellum/internal/gateway/middleware"
	"vellum/internal/gateway/shell"
	"vellum/internal/jsvm"
	"vellum/internal/session"
	"vellum/pkg/logger"
)

// Server represents the HTTP gateway server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	hub        *bridge.Hub
	sessions   *session.Manager
	config     *config.Config
	version    string
	log        zerolog.Logger
	health     *handlers.Health

	stopHub context.CancelFunc
}

// NewServer creates a gateway server. Author messages arriving on the hub
// are applied to the session's server-side preview before they are relayed.
func NewServer(cfg *config.Config, version string, hub *bridge.Hub, sessions *session.Manager) *Server {
	router := mux.NewRouter()

	// Recovery -> Logging -> routes
	handler := middleware.Recovery(middleware.Logging(router))

	s := &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router:   router,
		hub:      hub,
		sessions: sessions,
		config:   cfg,
		version:  version,
		log:      logger.Component("gateway"),
	}

	hub.SetMessageHandler(s.handleAuthorMessage)
	s.setupRoutes()
	return s
}

// setupRoutes configures the server routes.
func (s *Server) setupRoutes() {
	s.health = &handlers.Health{
		Version:  s.version,
		Sessions: func() int { return len(s.sessions.List()) },
		Clients:  s.hub.ClientCount,
	}
	s.router.Handle("/health", s.health).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		bridge.ServeWs(s.hub, w, r, s.handleConnect)
	})

	handlers.NewSessionHandler(s.sessions, s.hub).RegisterRoutes(s.router)

	dir := s.config.Preview.FrameDir
	if expanded, err := config.ExpandPath(dir); err == nil {
		dir = expanded
	}
	frame := shell.NewServer(dir, nil)
	frame.Handle(jsvm.DefaultScriptName, s.rendererScript)
	s.router.PathPrefix("/frame/").Handler(http.StripPrefix("/frame", frame))
	s.router.Handle("/frame", http.RedirectHandler("/frame/", http.StatusMovedPermanently))
}

// rendererScript serves the configured renderer to browser frames, read on
// every request so edits show up on reload; the embedded one by default.
func (s *Server) rendererScript() ([]byte, error) {
	script, err := config.ExpandPath(s.config.Runtime.Script)
	if err != nil {
		return nil, err
	}
	if script == "" {
		return []byte(jsvm.DefaultScript), nil
	}
	return os.ReadFile(script)
}

// handleConnect opens the session's server-side preview as soon as a client
// joins, so authors see it as ready before their first message.
func (s *Server) handleConnect(id string, role bridge.Role) {
	if _, err := s.sessions.Open(context.Background(), id); err != nil {
		s.log.Warn().Err(err).Str("session", id).Str("role", string(role)).Msg("Failed to open session preview")
	}
}

// handleAuthorMessage applies a relayed payload to the server-side preview.
func (s *Server) handleAuthorMessage(id string, data []byte) {
	if err := s.sessions.Post(context.Background(), id, data); err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("Failed to apply message to session preview")
	}
}

// Start starts the hub and serves HTTP until Shutdown.
func (s *Server) Start() error {
	addr := s.config.Gateway.Addr()
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve starts the hub and serves HTTP on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.health.MarkStarted(time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	s.stopHub = cancel
	go s.hub.Run(ctx)

	s.httpServer.Addr = l.Addr().String()
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Msg("Starting gateway server")

	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and stops the hub, which closes
// every websocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down gateway server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if s.stopHub != nil {
		s.stopHub()
	}
	if err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// Handler returns the server's root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router returns the underlying router for testing.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *bridge.Hub {
	return s.hub
}
