// Package server manages individual lobby sessions, handling the read and
// write duties, rate limiting, and lifecycle control for each connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

var errOutboxClosed = errors.New("outbox unregistered")

// SessionState is a step in a session's lifecycle.
type SessionState int32

// Session lifecycle states, in order.
const (
	StateConnecting SessionState = iota
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

// Session owns one client connection from attach to teardown.
type Session struct {
	id         uuid.UUID
	addr       string
	conn       Transport
	dispatcher *Dispatcher
	limiter    *rateLimiter
	rateLimit  RateLimitConfig
	writeWait  time.Duration
	pingPeriod time.Duration
	logger     *slog.Logger

	outbox  *Outbox
	state   atomic.Int32
	closing sync.Once
	cause   error
}

// NewSession creates a session with a fresh identity for conn. Call Run to
// start it.
func NewSession(conn Transport, addr string, dispatcher *Dispatcher, cfg Config, logger *slog.Logger) *Session {
	cfg = sanitizeConfig(cfg)
	id := uuid.New()
	return &Session{
		id:         id,
		addr:       addr,
		conn:       conn,
		dispatcher: dispatcher,
		limiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:  cfg.RateLimit,
		writeWait:  cfg.WriteWait,
		pingPeriod: cfg.PingPeriod(),
		logger:     logger.With("session_id", id, "addr", addr),
	}
}

// ID returns the identity assigned to the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run attaches the session, writes the baseline frames, and runs the read
// and write duties until either ends or ctx is cancelled. The closing step
// runs exactly once. Run returns the error that ended the session; a clean
// client disconnect wraps ErrPeerClosed.
func (s *Session) Run(ctx context.Context) error {
	outbox, baseline, err := s.dispatcher.Attach(s.id, s.addr)
	if err != nil {
		s.closeTransport()
		s.state.Store(int32(StateClosed))
		return fmt.Errorf("attach session: %w", err)
	}
	s.outbox = outbox

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if err := s.writeBaseline(baseline); err != nil {
		s.beginClosing(cancel, err)
		s.closeTransport()
		s.state.Store(int32(StateClosed))
		return s.cause
	}

	s.state.Store(int32(StateActive))
	s.logger.Debug("Session active")

	var g errgroup.Group
	g.Go(func() error {
		err := s.readPump(ctx)
		s.beginClosing(cancel, err)
		return err
	})
	g.Go(func() error {
		err := s.writePump(ctx)
		s.beginClosing(cancel, err)
		s.closeTransport()
		return err
	})
	_ = g.Wait()

	s.state.Store(int32(StateClosed))
	s.logger.Debug("Session closed")
	return s.cause
}

func (s *Session) writeBaseline(frames [][]byte) error {
	for _, frame := range frames {
		if err := s.write(websocket.BinaryMessage, frame); err != nil {
			return newSessionError("write baseline", ErrTransportFailure, err)
		}
	}
	return nil
}

// beginClosing moves the session to Closing, cancels both duties, and
// removes the session from the lobby. Only the first call has any effect.
func (s *Session) beginClosing(cancel context.CancelCauseFunc, cause error) {
	s.closing.Do(func() {
		if cause == nil {
			cause = newSessionError("close", ErrPeerClosed, nil)
		}
		s.cause = cause
		s.state.Store(int32(StateClosing))
		cancel(cause)
		s.dispatcher.Detach(s.id)
		s.logClose(cause)
	})
}

func (s *Session) logClose(cause error) {
	switch {
	case errors.Is(cause, ErrPeerClosed), errors.Is(cause, ErrServerShutdown):
		s.logger.Info("Session closing", "reason", cause)
	case errors.Is(cause, ErrTransportFailure):
		s.logger.Error("Session closing after transport failure", "error", cause)
	default:
		s.logger.Warn("Session rejected", "error", cause)
	}
}

func (s *Session) readPump(ctx context.Context) error {
	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			return s.readError(ctx, err)
		}

		if messageType != websocket.BinaryMessage {
			return newSessionError("read", ErrProtocolViolation, fmt.Errorf("unexpected frame type %d", messageType))
		}

		if !s.limiter.allow() {
			s.logger.Warn("Rate limit exceeded; discarding message",
				"burst", s.rateLimit.Burst, "interval", s.rateLimit.RefillInterval)
			continue
		}

		if _, err := s.dispatcher.Handle(s.id, message); err != nil {
			return err
		}
	}
}

// readError classifies a failed read. Once the session is already closing
// the read was unblocked by our own transport close, so the existing cause
// stands.
func (s *Session) readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		return newSessionError("read", ErrProtocolViolation, err)
	case isPeerClose(err):
		return newSessionError("read", ErrPeerClosed, err)
	default:
		return newSessionError("read", ErrTransportFailure, err)
	}
}

func (s *Session) writePump(ctx context.Context) error {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cause := context.Cause(ctx)
			s.writeClose(cause)
			return cause

		case <-s.outbox.Done():
			// Closed by our own closing step, or by a newer registration of
			// the same id.
			cause := context.Cause(ctx)
			if cause == nil {
				cause = newSessionError("write", ErrRegistryInvariant, errOutboxClosed)
			}
			s.writeClose(cause)
			return cause

		case payload := <-s.outbox.C():
			if err := s.write(websocket.BinaryMessage, payload); err != nil {
				return newSessionError("write", ErrTransportFailure, err)
			}

		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return newSessionError("ping", ErrTransportFailure, err)
			}
		}
	}
}

func (s *Session) write(messageType int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// writeClose sends a close frame describing cause. Failures are expected
// when the peer is already gone.
func (s *Session) writeClose(cause error) {
	code, reason := closeFrameFor(cause)
	err := s.write(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	if err != nil && !isExpectedCloseError(err) {
		s.logger.Debug("Error writing close message", "error", err)
	}
}

func (s *Session) closeTransport() {
	if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
		s.logger.Debug("Error closing connection", "error", err)
	}
}
