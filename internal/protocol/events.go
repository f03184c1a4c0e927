// Package protocol defines the lobby message catalogue and its CBOR wire
// encoding. Every message is a CBOR map tagged by its "event_type" key.
package protocol

import "github.com/Tyrowin/lobby/internal/lobby"

// EventType is the value of the "event_type" key.
type EventType string

// Event types understood by the server and the client.
const (
	EventNewPlayer         EventType = "NewPlayer"
	EventToggleReady       EventType = "ToggleReady"
	EventGetPlayersInLobby EventType = "GetPlayersInLobby"
	EventPlayersInLobby    EventType = "PlayersInLobby"
	EventYourID            EventType = "YourId"
)

// ClientEvent is a message sent by a client.
type ClientEvent interface {
	Type() EventType
}

// ServerEvent is a message sent by the server.
type ServerEvent interface {
	Type() EventType
}

// NewPlayer asks the server to register the connection as a player.
type NewPlayer struct {
	Name string
}

// ToggleReady flips the sender's ready flag.
type ToggleReady struct{}

// GetPlayersInLobby asks for the current roster.
type GetPlayersInLobby struct{}

// PlayersInLobby carries the full roster.
type PlayersInLobby struct {
	Players []PlayerInLobby
}

// YourID tells a connection the identity the server assigned to it.
type YourID struct {
	ID string
}

// PlayerInLobby is one roster entry as it appears on the wire.
type PlayerInLobby struct {
	ID    string `cbor:"id" json:"id"`
	Name  string `cbor:"name" json:"name"`
	Color string `cbor:"color" json:"color"`
	Ready bool   `cbor:"ready" json:"ready"`
}

func (NewPlayer) Type() EventType         { return EventNewPlayer }
func (ToggleReady) Type() EventType       { return EventToggleReady }
func (GetPlayersInLobby) Type() EventType { return EventGetPlayersInLobby }
func (PlayersInLobby) Type() EventType    { return EventPlayersInLobby }
func (YourID) Type() EventType            { return EventYourID }

// Roster converts registry players into a PlayersInLobby event. The player
// list is never nil so it always encodes as an array.
func Roster(players []lobby.Player) PlayersInLobby {
	entries := make([]PlayerInLobby, 0, len(players))
	for _, p := range players {
		entries = append(entries, PlayerInLobby{
			ID:    p.ID.String(),
			Name:  p.Name,
			Color: p.Color.String(),
			Ready: p.Ready,
		})
	}
	return PlayersInLobby{Players: entries}
}
