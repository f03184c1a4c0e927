package server

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/Tyrowin/lobby/internal/lobby"
)

func TestSessionErrorUnwrap(t *testing.T) {
	err := newSessionError("join", ErrLobbyFull, lobby.ErrColorsExhausted)

	assert.ErrorIs(t, err, ErrLobbyFull)
	assert.ErrorIs(t, err, lobby.ErrColorsExhausted)
	assert.NotErrorIs(t, err, ErrProtocolViolation)
	assert.Equal(t, "join: lobby full: lobby: all colors are taken", err.Error())

	wrapped := fmt.Errorf("session: %w", err)
	var sessionErr *SessionError
	assert.ErrorAs(t, wrapped, &sessionErr)
	assert.Equal(t, "join", sessionErr.Op)

	bare := newSessionError("close", ErrPeerClosed, nil)
	assert.ErrorIs(t, bare, ErrPeerClosed)
	assert.Equal(t, "close: peer closed connection", bare.Error())
}

func TestCloseFrameFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"lobby full", newSessionError("join", ErrLobbyFull, nil), websocket.CloseTryAgainLater},
		{"protocol violation", newSessionError("decode", ErrProtocolViolation, nil), websocket.ClosePolicyViolation},
		{"registry invariant", newSessionError("toggle ready", ErrRegistryInvariant, nil), websocket.ClosePolicyViolation},
		{"shutdown", ErrServerShutdown, websocket.CloseGoingAway},
		{"transport", newSessionError("write", ErrTransportFailure, io.ErrClosedPipe), websocket.CloseInternalServerErr},
		{"peer closed", newSessionError("read", ErrPeerClosed, nil), websocket.CloseNormalClosure},
		{"nil", nil, websocket.CloseNormalClosure},
		{"unclassified", errors.New("boom"), websocket.CloseNormalClosure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := closeFrameFor(tt.err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestIsPeerClose(t *testing.T) {
	assert.True(t, isPeerClose(&websocket.CloseError{Code: websocket.CloseNormalClosure}))
	assert.True(t, isPeerClose(&websocket.CloseError{Code: websocket.CloseGoingAway}))
	assert.True(t, isPeerClose(&websocket.CloseError{Code: websocket.CloseAbnormalClosure}), "abrupt disconnect")
	assert.True(t, isPeerClose(io.EOF))
	assert.True(t, isPeerClose(io.ErrUnexpectedEOF))
	assert.False(t, isPeerClose(&websocket.CloseError{Code: websocket.CloseProtocolError}))
	assert.False(t, isPeerClose(errors.New("connection reset by peer")))
}

func TestIsExpectedCloseError(t *testing.T) {
	assert.True(t, isExpectedCloseError(nil))
	assert.True(t, isExpectedCloseError(websocket.ErrCloseSent))
	assert.True(t, isExpectedCloseError(fmt.Errorf("write: %w", io.EOF)))
	assert.True(t, isExpectedCloseError(errors.New("write tcp: broken pipe")))
	assert.False(t, isExpectedCloseError(errors.New("tls: bad record MAC")))
}
