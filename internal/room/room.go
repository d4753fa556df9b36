// Package room holds the per-room seat roster and the registry that owns all
// live rooms. The registry serializes every mutation for a given room, which
// is the one concurrency contract the engine relies on.
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/openhand/chiptally/internal/engine"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrSeatNotFound  = errors.New("seat not found")
	ErrAlreadySeated = errors.New("player already seated")
)

// Seat is a roster entry, independent of any live hand. Stacks are written
// back here at settlement; exactly one seat carries the dealer flag once a
// hand has been played.
type Seat struct {
	ID       string
	Name     string
	Stack    int
	IsDealer bool
}

// Room is one table: its join code, seat roster in seating order, and the
// hand in progress, if any.
type Room struct {
	ID        string
	Seats     []Seat
	Hand      *engine.HandState
	CreatedAt time.Time
}

// AddSeat appends a seat to the roster. Seating order is insertion order and
// fixed for the lifetime of the room.
func (r *Room) AddSeat(id, name string, stack int) error {
	for _, s := range r.Seats {
		if s.ID == id {
			return ErrAlreadySeated
		}
	}
	r.Seats = append(r.Seats, Seat{ID: id, Name: name, Stack: stack})
	return nil
}

// RemoveSeat drops a seat from the roster. Not permitted while a hand is
// live; the caller resolves that with a fold first.
func (r *Room) RemoveSeat(id string) error {
	for i, s := range r.Seats {
		if s.ID == id {
			r.Seats = append(r.Seats[:i], r.Seats[i+1:]...)
			return nil
		}
	}
	return ErrSeatNotFound
}

// Seat returns a copy of the roster entry for the given player.
func (r *Room) Seat(id string) (Seat, error) {
	for _, s := range r.Seats {
		if s.ID == id {
			return s, nil
		}
	}
	return Seat{}, ErrSeatNotFound
}

// HandPlayers derives the per-hand player records from the roster, in
// seating order. The returned slice is owned by the new hand.
func (r *Room) HandPlayers() []*engine.Player {
	players := make([]*engine.Player, len(r.Seats))
	for i, s := range r.Seats {
		players[i] = &engine.Player{
			ID:       s.ID,
			Name:     s.Name,
			Stack:    s.Stack,
			IsDealer: s.IsDealer,
		}
	}
	return players
}

// Registry owns all live rooms. Each room has its own lock so that actions
// for different rooms never contend, while actions for the same room are
// applied one at a time in arrival order.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	room *Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*entry)}
}

// Create registers a new room under the given code.
func (g *Registry) Create(id string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rooms[id]; ok {
		return nil, ErrRoomExists
	}
	r := &Room{ID: id, CreatedAt: time.Now()}
	g.rooms[id] = &entry{room: r}
	return r, nil
}

// With runs fn with exclusive ownership of the room. All reads and writes of
// a room's roster or hand state must go through here.
func (g *Registry) With(id string, fn func(*Room) error) error {
	g.mu.RLock()
	e, ok := g.rooms[id]
	g.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.room)
}

// Remove drops a room from the registry.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, id)
}

// Exists reports whether a room is registered under the given code.
func (g *Registry) Exists(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[id]
	return ok
}

// Count returns the number of live rooms.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
