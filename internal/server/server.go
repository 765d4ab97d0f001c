// Package server assembles a running vellum server from its parts: the
// sqlite store behind each session's localStorage, the websocket relay, the
// server-side session previews and the HTTP gateway. serve uses it, and so
// do tests that need a whole server.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vellum/internal/bridge"
	"vellum/internal/config"
	"vellum/internal/gateway"
	"vellum/internal/session"
	"vellum/internal/storage"
	"vellum/internal/watch"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Server is a vellum server running in-process.
type Server struct {
	cfg      *config.Config
	version  string
	logger   zerolog.Logger
	db       *storage.DB
	hub      *bridge.Hub
	sessions *session.Manager
	gateway  *gateway.Server
	watcher  *watch.Watcher
	listener net.Listener

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	errChan   chan error
}

// ServerConfig holds configuration for the server.
type ServerConfig struct {
	Config  *config.Config
	Version string
	Logger  zerolog.Logger
}

// NewServer creates a server. Nothing is opened until Start.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	return &Server{
		cfg:     cfg.Config,
		version: cfg.Version,
		logger:  cfg.Logger,
		errChan: make(chan error, 1),
	}, nil
}

// ErrorChan reports the error that stopped the server, if any.
func (s *Server) ErrorChan() <-chan error {
	return s.errChan
}

// Start opens storage, binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	db, err := s.openStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	l, err := net.Listen("tcp", s.cfg.Gateway.Addr())
	if err != nil {
		if db != nil {
			db.Close()
		}
		return fmt.Errorf("listen %s: %w", s.cfg.Gateway.Addr(), err)
	}

	script, err := config.ExpandPath(s.cfg.Runtime.Script)
	if err != nil {
		l.Close()
		if db != nil {
			db.Close()
		}
		return err
	}

	hub := bridge.NewHub()
	sessionLog := s.logger.With().Str("component", "session").Logger()
	sessions := session.NewManager(session.Options{
		DB:              db,
		Script:          script,
		Timeout:         s.cfg.Runtime.Timeout,
		HighlightBorder: s.cfg.Preview.HighlightBorder,
		IdleTimeout:     s.cfg.Preview.IdleTimeout,
		ReapSchedule:    s.cfg.Preview.ReapSchedule,
		Notifier:        hub,
		Logger:          &sessionLog,
	})
	if err := sessions.Start(); err != nil {
		l.Close()
		if db != nil {
			db.Close()
		}
		return err
	}

	s.db, s.hub, s.sessions, s.listener = db, hub, sessions, l
	s.gateway = gateway.NewServer(s.cfg, s.version, hub, sessions)

	if script != "" {
		s.watchScript(script)
	}

	s.running = true
	s.startedAt = time.Now()

	go s.run()

	s.logger.Info().
		Str("address", "http://"+l.Addr().String()).
		Str("storage", s.cfg.Storage.Driver).
		Msg("Vellum server started")
	return nil
}

func (s *Server) openStorage() (*storage.DB, error) {
	switch s.cfg.Storage.Driver {
	case DriverNone:
		return nil, nil
	case DriverMemory:
		return storage.Open(storage.MemoryPath)
	case "", DriverSQLite:
		path := s.cfg.Storage.Path
		if path == "" {
			var err error
			if path, err = config.DefaultDataPath(); err != nil {
				return nil, err
			}
		}
		return storage.Open(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", s.cfg.Storage.Driver)
	}
}

// watchScript reloads the renderer of every session when the script file
// changes. A script that fails to load leaves the previous one running.
func (s *Server) watchScript(path string) {
	w, err := watch.New(func(path string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.sessions.Reload(ctx, path); err != nil {
			s.logger.Warn().Err(err).Str("script", path).Msg("Failed to reload renderer script")
			return
		}
		s.logger.Info().Str("script", path).Msg("Renderer script reloaded")
	}, path)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("script", path).Msg("Renderer script will not be watched")
		return
	}
	s.watcher = w
}

// run serves until the gateway stops.
func (s *Server) run() {
	if err := s.gateway.Serve(s.listener); err != nil {
		s.logger.Error().Err(err).Msg("Server error")
		s.errChan <- err
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Stop shuts the gateway down, closes every session and the store.
func (s *Server) Stop() error {
	s.mu.RLock()
	gw := s.gateway
	s.mu.RUnlock()
	if gw == nil {
		return nil
	}

	s.logger.Info().Msg("Stopping server...")

	if s.watcher != nil {
		s.watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := gw.Shutdown(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error during server shutdown")
	}

	s.sessions.Close()
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	s.mu.Lock()
	s.running = false
	s.gateway = nil
	s.mu.Unlock()

	s.logger.Info().Msg("Server stopped")
	return err
}

// Addr returns the address the server listens on, empty before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// StartedAt returns when the server started.
func (s *Server) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Sessions returns the session manager, nil before Start.
func (s *Server) Sessions() *session.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions
}
