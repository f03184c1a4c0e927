// Package server wires the lobby registry, session directory, and dispatcher
// into a Server that accepts WebSocket sessions.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/lobby/internal/lobby"
)

// Server owns the lobby state shared by all sessions.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	registry   *lobby.Registry
	directory  *Directory
	dispatcher *Dispatcher
	origins    originPolicy
	upgrader   websocket.Upgrader

	ctx      context.Context
	cancel   context.CancelCauseFunc
	mu       sync.Mutex
	closed   bool
	sessions sync.WaitGroup
}

// New creates a Server from cfg. Unset config values fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Server {
	cfg = sanitizeConfig(cfg)
	registry := lobby.NewRegistry()
	directory := NewDirectory(cfg.SendBufferSize, logger)
	ctx, cancel := context.WithCancelCause(context.Background())

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		directory:  directory,
		dispatcher: NewDispatcher(registry, directory, logger),
		origins:    newOriginPolicy(cfg.AllowedOrigins, logger),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	cfg := s.cfg
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// Registry returns the lobby roster.
func (s *Server) Registry() *lobby.Registry {
	return s.registry
}

// Directory returns the live session directory.
func (s *Server) Directory() *Directory {
	return s.directory
}

// beginSession reserves a slot in the session wait group. It reports false
// once shutdown has started.
func (s *Server) beginSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.sessions.Add(1)
	return true
}

// Shutdown closes every session with a going-away close frame and waits for
// them to finish, or until timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.logger.Info("Initiating lobby shutdown...", "sessions", s.directory.Len())

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel(ErrServerShutdown)

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Lobby shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		s.logger.Warn("Lobby shutdown timeout reached, some sessions may still be running")
		return context.DeadlineExceeded
	}
}
