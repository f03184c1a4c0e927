package lobby

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Registry is the process-wide roster. Players are kept in join order and
// every method is safe for concurrent use; no method hands out a reference
// into the internal slice.
type Registry struct {
	mu      sync.Mutex
	players []Player
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		players: make([]Player, 0, Capacity),
	}
}

// AssignColor reports the first color, in Red, Blue, Green, Yellow order,
// that no player currently holds. It does not reserve the color; use
// AddPlayer to assign and insert atomically.
func (r *Registry) AssignColor() (Color, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.freeColorLocked()
}

func (r *Registry) freeColorLocked() (Color, error) {
	for _, color := range palette {
		taken := false
		for i := range r.players {
			if r.players[i].Color == color {
				taken = true
				break
			}
		}
		if !taken {
			return color, nil
		}
	}
	return 0, ErrColorsExhausted
}

// AddPlayer picks a free color and appends a new, not-ready player in one
// critical section. The registry is left untouched on error.
func (r *Registry) AddPlayer(id uuid.UUID, name string) (Player, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Player{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(id) >= 0 {
		return Player{}, ErrAlreadyJoined
	}

	color, err := r.freeColorLocked()
	if err != nil {
		return Player{}, err
	}

	player := Player{ID: id, Name: name, Color: color}
	r.players = append(r.players, player)
	return player, nil
}

// ToggleReady flips the ready flag of the player with the given id and
// returns the updated player.
func (r *Registry) ToggleReady(id uuid.UUID) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Player{}, ErrPlayerNotFound
	}
	r.players[i].Ready = !r.players[i].Ready
	return r.players[i], nil
}

// RemovePlayer deletes the player with the given id, keeping the order of
// the others. It reports whether a player was removed.
func (r *Registry) RemovePlayer(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return false
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	return true
}

// Get returns the player with the given id.
func (r *Registry) Get(id uuid.UUID) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Player{}, false
	}
	return r.players[i], true
}

// Snapshot returns a copy of the roster in join order.
func (r *Registry) Snapshot() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Player(nil), r.players...)
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.players)
}

func (r *Registry) indexLocked(id uuid.UUID) int {
	for i := range r.players {
		if r.players[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
