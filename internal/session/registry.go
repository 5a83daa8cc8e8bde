package session

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("connection not found")
	ErrInvalidState = errors.New("invalid session state")
)

// Connection is one live client session. The identifier is server-assigned
// and unique for the session's lifetime; the player identity is attached on
// join and is stable across sessions.
type Connection struct {
	Id           string
	PlayerId     string
	Username     string
	WorldId      string
	LocationId   string
	LastActivity time.Time
}

// Attached reports whether the connection has joined the game. The world and
// location pair is either both empty or both set.
func (c Connection) Attached() bool {
	return c.WorldId != "" && c.LocationId != ""
}

// Evictor removes a connection from whatever world membership it holds.
// Satisfied by world.Directory.
type Evictor interface {
	Leave(connId string)
}

// Registry is the single source of truth for who is online. It owns every
// Connection exclusively; mutations for one connection are serialized by the
// registry lock.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*Connection
	evictor Evictor
}

func NewRegistry(evictor Evictor) *Registry {
	return &Registry{
		conns:   make(map[string]*Connection),
		evictor: evictor,
	}
}

// Register creates a Connection with no session attributes. Never fails;
// registering an existing id resets it.
func (r *Registry) Register(connId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connId] = &Connection{
		Id:           connId,
		LastActivity: time.Now(),
	}
}

// AttachIdentity binds a player identity and starting world/location to a
// registered connection. Fails with ErrInvalidState if the connection is
// unknown or already attached.
func (r *Registry) AttachIdentity(connId, playerId, username, worldId, locId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connId]
	if !ok {
		return ErrInvalidState
	}
	if c.Attached() {
		return ErrInvalidState
	}

	c.PlayerId = playerId
	c.Username = username
	c.WorldId = worldId
	c.LocationId = locId
	c.LastActivity = time.Now()
	return nil
}

// UpdateLocation records the connection's new location. Fails with
// ErrInvalidState if the connection has no world attached.
func (r *Registry) UpdateLocation(connId, locId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connId]
	if !ok || !c.Attached() {
		return ErrInvalidState
	}

	c.LocationId = locId
	return nil
}

// Unregister removes the connection and evicts it from any world membership
// it holds. Idempotent: safe to call multiple times or after partial failure.
func (r *Registry) Unregister(connId string) {
	r.mu.Lock()
	_, ok := r.conns[connId]
	delete(r.conns, connId)
	r.mu.Unlock()

	// Eviction runs outside the registry lock; Leave is itself idempotent,
	// so running it for an already removed connection is harmless.
	if ok && r.evictor != nil {
		r.evictor.Leave(connId)
	}
}

// Lookup returns a copy of the connection's current attributes.
func (r *Registry) Lookup(connId string) (Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connId]
	if !ok {
		return Connection{}, ErrNotFound
	}
	return *c, nil
}

// MarkActive resets the connection's idle timer.
func (r *Registry) MarkActive(connId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[connId]; ok {
		c.LastActivity = time.Now()
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ConnectionIds returns a snapshot of all live connection ids.
func (r *Registry) ConnectionIds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// IdleSince returns the ids of connections with no activity since the cutoff.
func (r *Registry) IdleSince(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, c := range r.conns {
		if c.LastActivity.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
