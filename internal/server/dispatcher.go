package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Tyrowin/lobby/internal/lobby"
	"github.com/Tyrowin/lobby/internal/protocol"
)

// Dispatcher turns inbound client events into roster mutations and roster
// broadcasts. Each mutation, the snapshot taken after it, and the enqueue of
// that snapshot happen under one lock, so every session sees roster payloads
// in mutation order. No transport I/O happens under the lock.
type Dispatcher struct {
	mu        sync.Mutex
	registry  *lobby.Registry
	directory *Directory
	logger    *slog.Logger
}

// NewDispatcher wires a Dispatcher to the shared registry and directory.
func NewDispatcher(registry *lobby.Registry, directory *Directory, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		directory: directory,
		logger:    logger,
	}
}

// Attach registers a new session and returns its outbox together with the
// baseline frames (YourId, then PlayersInLobby) the session must write before
// draining the outbox. Anything queued on the outbox is newer than the
// baseline.
func (d *Dispatcher) Attach(id uuid.UUID, addr string) (*Outbox, [][]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	yourID, err := protocol.Encode(protocol.YourID{ID: id.String()})
	if err != nil {
		return nil, nil, err
	}
	roster, err := d.rosterLocked()
	if err != nil {
		return nil, nil, err
	}

	outbox := d.directory.Register(id, addr)
	return outbox, [][]byte{yourID, roster}, nil
}

// Handle decodes message from session id, applies it, and returns the
// payload it broadcast, or nil when the event does not change the roster.
func (d *Dispatcher) Handle(id uuid.UUID, message []byte) ([]byte, error) {
	event, err := protocol.Decode(message)
	if err != nil {
		return nil, newSessionError("decode", ErrProtocolViolation, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev := event.(type) {
	case protocol.NewPlayer:
		player, err := d.registry.AddPlayer(id, ev.Name)
		switch {
		case errors.Is(err, lobby.ErrColorsExhausted):
			return nil, newSessionError("join", ErrLobbyFull, err)
		case err != nil:
			return nil, newSessionError("join", ErrProtocolViolation, err)
		}
		d.logger.Info("Player joined", "session_id", id, "name", player.Name, "color", player.Color)
		return d.broadcastLocked()

	case protocol.ToggleReady:
		player, err := d.registry.ToggleReady(id)
		if err != nil {
			return nil, newSessionError("toggle ready", ErrRegistryInvariant, err)
		}
		d.logger.Info("Player readiness changed", "session_id", id, "name", player.Name, "ready", player.Ready)
		return d.broadcastLocked()

	case protocol.GetPlayersInLobby:
		roster, err := d.rosterLocked()
		if err != nil {
			return nil, err
		}
		d.directory.Send(id, roster)
		return nil, nil

	default:
		return nil, newSessionError("dispatch", ErrProtocolViolation, fmt.Errorf("unhandled event %s", event.Type()))
	}
}

// Detach performs the closing step for session id: the player, if any, is
// removed and the refreshed roster broadcast, then the session's outbox is
// unregistered. Sessions that never joined leave without a broadcast.
func (d *Dispatcher) Detach(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.registry.RemovePlayer(id) {
		d.logger.Info("Player left", "session_id", id)
		if _, err := d.broadcastLocked(); err != nil {
			d.logger.Error("Failed to broadcast roster after leave", "session_id", id, "error", err)
		}
	}
	d.directory.Unregister(id)
}

// Roster returns the encoded current roster.
func (d *Dispatcher) Roster() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.rosterLocked()
}

func (d *Dispatcher) rosterLocked() ([]byte, error) {
	payload, err := protocol.Encode(protocol.Roster(d.registry.Snapshot()))
	if err != nil {
		return nil, fmt.Errorf("encode roster: %w", err)
	}
	return payload, nil
}

func (d *Dispatcher) broadcastLocked() ([]byte, error) {
	payload, err := d.rosterLocked()
	if err != nil {
		return nil, err
	}
	d.directory.Broadcast(payload)
	return payload, nil
}
