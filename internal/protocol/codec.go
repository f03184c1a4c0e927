package protocol

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrMalformed is returned when a payload is not a CBOR event map.
	ErrMalformed = errors.New("protocol: malformed message")
	// ErrUnknownEvent is returned for an event_type the server does not accept.
	ErrUnknownEvent = errors.New("protocol: unknown event type")
)

type envelope struct {
	EventType EventType `cbor:"event_type"`
}

type newPlayerWire struct {
	EventType EventType `cbor:"event_type"`
	Name      string    `cbor:"name"`
}

type playersInLobbyWire struct {
	EventType EventType       `cbor:"event_type"`
	Players   []PlayerInLobby `cbor:"players"`
}

type yourIDWire struct {
	EventType EventType `cbor:"event_type"`
	ID        string    `cbor:"id"`
}

var (
	decMode cbor.DecMode
	encMode cbor.EncMode
)

func init() {
	var err error
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  8,
		MaxArrayElements: 64,
		MaxMapPairs:      64,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: cbor decode options: %v", err))
	}

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: cbor encode options: %v", err))
	}
}

// Decode parses a client message. Errors wrap ErrMalformed or
// ErrUnknownEvent.
func Decode(data []byte) (ClientEvent, error) {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.EventType {
	case EventNewPlayer:
		var msg newPlayerWire
		if err := decMode.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return NewPlayer{Name: msg.Name}, nil
	case EventToggleReady:
		return ToggleReady{}, nil
	case EventGetPlayersInLobby:
		return GetPlayersInLobby{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.EventType)
	}
}

// Encode serializes a server message.
func Encode(event ServerEvent) ([]byte, error) {
	var wire any
	switch ev := event.(type) {
	case PlayersInLobby:
		players := ev.Players
		if players == nil {
			players = []PlayerInLobby{}
		}
		wire = playersInLobbyWire{EventType: EventPlayersInLobby, Players: players}
	case YourID:
		wire = yourIDWire{EventType: EventYourID, ID: ev.ID}
	default:
		return nil, fmt.Errorf("protocol: cannot encode %T", event)
	}

	data, err := encMode.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", event.Type(), err)
	}
	return data, nil
}
