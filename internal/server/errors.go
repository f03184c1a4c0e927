package server

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

// Session termination kinds. A *SessionError always unwraps to one of these.
var (
	// ErrProtocolViolation marks a malformed, unknown, or disallowed message.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrLobbyFull marks a join rejected because no color is free.
	ErrLobbyFull = errors.New("lobby full")
	// ErrTransportFailure marks a failed read or write on the connection.
	ErrTransportFailure = errors.New("transport failure")
	// ErrRegistryInvariant marks a request that contradicts the roster, such
	// as toggling readiness before joining.
	ErrRegistryInvariant = errors.New("registry invariant violation")
	// ErrPeerClosed marks a close frame or clean disconnect from the client.
	ErrPeerClosed = errors.New("peer closed connection")
	// ErrServerShutdown marks sessions ended by server shutdown.
	ErrServerShutdown = errors.New("server shutting down")
)

// SessionError describes why a session operation failed.
type SessionError struct {
	Op   string
	Kind error
	Err  error
}

func newSessionError(op string, kind, err error) *SessionError {
	return &SessionError{Op: op, Kind: kind, Err: err}
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *SessionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// closeFrameFor picks the close code and reason sent to the client when a
// session ends with err.
func closeFrameFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrLobbyFull):
		return websocket.CloseTryAgainLater, "lobby full"
	case errors.Is(err, ErrProtocolViolation):
		return websocket.ClosePolicyViolation, "protocol violation"
	case errors.Is(err, ErrRegistryInvariant):
		return websocket.ClosePolicyViolation, "not in lobby"
	case errors.Is(err, ErrServerShutdown):
		return websocket.CloseGoingAway, "server shutting down"
	case errors.Is(err, ErrTransportFailure):
		return websocket.CloseInternalServerErr, ""
	default:
		return websocket.CloseNormalClosure, ""
	}
}
