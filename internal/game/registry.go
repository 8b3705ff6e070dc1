package game

import (
	"sync"

	"github.com/scythe504/andevent-backend/internal"
)

// Client is one live connection. Implementations must make WriteJSON safe
// for concurrent use.
type Client interface {
	Id() string
	WriteJSON(v any) error
}

// Session is what a connection is bound to.
type Session struct {
	Client   Client
	Pin      string
	Role     internal.Role
	PlayerId string
}

// Registry indexes connections by id and by room so a broadcast touches
// only the sessions of one room.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// Bind attaches a connection to a room. A connection belongs to at most one room.
func (r *Registry) Bind(c Client, pin string, role internal.Role, playerId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[c.Id()]; ok {
		return conflictError("connection is already in game %s", existing.Pin)
	}

	r.sessions[c.Id()] = &Session{Client: c, Pin: pin, Role: role, PlayerId: playerId}
	if _, ok := r.rooms[pin]; !ok {
		r.rooms[pin] = make(map[string]struct{})
	}
	r.rooms[pin][c.Id()] = struct{}{}
	return nil
}

func (r *Registry) Unbind(clientId string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[clientId]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, clientId)
	if members, ok := r.rooms[sess.Pin]; ok {
		delete(members, clientId)
		if len(members) == 0 {
			delete(r.rooms, sess.Pin)
		}
	}
	return *sess, true
}

// UnbindRoom drops every session of a room and returns how many there were.
func (r *Registry) UnbindRoom(pin string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[pin]
	for id := range members {
		delete(r.sessions, id)
	}
	delete(r.rooms, pin)
	return len(members)
}

func (r *Registry) Lookup(clientId string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[clientId]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// RoomSessions snapshots the sessions of a room.
func (r *Registry) RoomSessions(pin string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[pin]
	out := make([]Session, 0, len(members))
	for id := range members {
		out = append(out, *r.sessions[id])
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
