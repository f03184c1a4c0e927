// Package server runs the lobby behind an http.Server and tears both down
// together when the serving context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const readHeaderTimeout = 10 * time.Second

// CreateServer builds the http.Server for cfg. WriteTimeout is left unset
// because upgraded connections manage their own write deadlines, and idle
// keep-alive connections get the same budget as an unanswered ping.
func CreateServer(cfg Config, handler http.Handler, logger *slog.Logger) *http.Server {
	cfg = sanitizeConfig(cfg)
	return &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       cfg.PongWait,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}

// Serve listens on httpServer until ctx is done, then stops accepting HTTP
// requests and shuts the lobby down, each within the configured shutdown
// timeout. It returns early with the listener error if serving fails.
func (s *Server) Serve(ctx context.Context, httpServer *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", httpServer.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", httpServer.Addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...", "reason", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are invisible to http.Server.Shutdown;
	// the lobby closes them itself.
	httpErr := httpServer.Shutdown(shutdownCtx)
	if httpErr != nil {
		s.logger.Error("HTTP server shutdown error", "error", httpErr)
	}
	lobbyErr := s.Shutdown(s.cfg.ShutdownTimeout)

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		httpErr = errors.Join(httpErr, err)
	}
	return errors.Join(httpErr, lobbyErr)
}
