// Package lobby holds the shared roster of players waiting in the lobby and
// the rules for how players join, change readiness, and leave.
package lobby

import (
	"fmt"

	"github.com/google/uuid"
)

// Color identifies a player's slot in the lobby. The zero value is not a
// valid color.
type Color int

// Colors in assignment order.
const (
	Red Color = iota + 1
	Blue
	Green
	Yellow
)

// palette is the fixed color pool. Its length is the lobby capacity.
var palette = [...]Color{Red, Blue, Green, Yellow}

// Capacity is the maximum number of players the lobby holds at once.
const Capacity = len(palette)

// MaxNameLength is the maximum player name length, in runes.
const MaxNameLength = 32

// String returns the color name as it appears on the wire.
func (c Color) String() string {
	switch c {
	case Red:
		return "Red"
	case Blue:
		return "Blue"
	case Green:
		return "Green"
	case Yellow:
		return "Yellow"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}

// Colors returns the color pool in assignment order.
func Colors() []Color {
	return append([]Color(nil), palette[:]...)
}

// Player is a registered lobby member.
type Player struct {
	ID    uuid.UUID
	Name  string
	Color Color
	Ready bool
}
