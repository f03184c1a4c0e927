package lobby

import "errors"

var (
	// ErrColorsExhausted is returned when every color is held by a player.
	ErrColorsExhausted = errors.New("lobby: all colors are taken")
	// ErrPlayerNotFound is returned when an operation targets an id that is
	// not registered.
	ErrPlayerNotFound = errors.New("lobby: player not found")
	// ErrAlreadyJoined is returned when an id joins a second time.
	ErrAlreadyJoined = errors.New("lobby: player already joined")
	// ErrInvalidName is returned for empty or overlong player names.
	ErrInvalidName = errors.New("lobby: invalid player name")
)
