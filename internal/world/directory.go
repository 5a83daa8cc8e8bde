package world

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dragonslegacy/worldserver/internal/storage"
)

// instance is the runtime state of one world: the definition plus member sets.
type instance struct {
	def     *World
	members map[string]struct{}            // all connections in the world
	byLoc   map[string]map[string]struct{} // location id -> member set
}

// occupancy records where a connection currently is.
type occupancy struct {
	worldId string
	locId   string
}

// Directory is the single source of truth for world and location membership.
// All access goes through its methods to keep the dual member sets (world and
// location) consistent: a connection is in a world's member set iff it is in
// exactly one of that world's location member sets.
type Directory struct {
	mu        sync.RWMutex
	worlds    map[string]*instance
	occupants map[string]occupancy
}

// NewDirectory builds runtime instances for every world in the store.
func NewDirectory(worlds storage.Storer[*World]) (*Directory, error) {
	d := &Directory{
		worlds:    make(map[string]*instance),
		occupants: make(map[string]occupancy),
	}

	for id, def := range worlds.GetAll() {
		inst := &instance{
			def:     def,
			members: make(map[string]struct{}),
			byLoc:   make(map[string]map[string]struct{}, len(def.Locations)),
		}
		for locId := range def.Locations {
			inst.byLoc[locId] = make(map[string]struct{})
		}
		d.worlds[id] = inst
	}

	if len(d.worlds) == 0 {
		return nil, fmt.Errorf("no worlds defined")
	}

	return d, nil
}

// Join adds a connection to both the world member set and the target location
// member set. The two updates happen under one lock so partial membership is
// never observable.
func (d *Directory) Join(worldId, locId, connId string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	inst, ok := d.worlds[worldId]
	if !ok {
		return ErrUnknownWorld
	}
	loc, ok := inst.byLoc[locId]
	if !ok {
		return ErrUnknownLocation
	}

	// A rejoin replaces the existing membership, so it never counts against
	// capacity twice. The check runs before the eviction so a failed join
	// leaves the previous membership untouched.
	count := len(inst.members)
	if _, ok := inst.members[connId]; ok {
		count--
	}
	if count >= inst.def.Capacity {
		return ErrCapacityExceeded
	}

	// Rejoining from elsewhere is a caller bug; evict the stale membership
	// so the one-location invariant holds.
	if prev, ok := d.occupants[connId]; ok {
		d.remove(prev, connId)
	}

	inst.members[connId] = struct{}{}
	loc[connId] = struct{}{}
	d.occupants[connId] = occupancy{worldId: worldId, locId: locId}
	return nil
}

// Move transfers a connection between two locations of its current world.
// The removal and addition happen under one lock; no intermediate state is
// observable where the connection is in neither or both locations.
func (d *Directory) Move(connId, fromLocId, toLocId string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	occ, ok := d.occupants[connId]
	if !ok || occ.locId != fromLocId {
		return ErrNotPresent
	}

	inst := d.worlds[occ.worldId]
	to, ok := inst.byLoc[toLocId]
	if !ok {
		return ErrUnknownLocation
	}

	delete(inst.byLoc[fromLocId], connId)
	to[connId] = struct{}{}
	d.occupants[connId] = occupancy{worldId: occ.worldId, locId: toLocId}
	return nil
}

// Leave removes a connection from whatever world and location it occupies.
// It is idempotent; unknown connections are a no-op.
func (d *Directory) Leave(connId string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	occ, ok := d.occupants[connId]
	if !ok {
		return
	}
	d.remove(occ, connId)
}

// remove deletes connId from both member sets. Caller holds the lock.
func (d *Directory) remove(occ occupancy, connId string) {
	if inst, ok := d.worlds[occ.worldId]; ok {
		delete(inst.members, connId)
		if loc, ok := inst.byLoc[occ.locId]; ok {
			delete(loc, connId)
		}
	}
	delete(d.occupants, connId)
}

// MembersOf returns a point-in-time copy of a location's member set, sorted
// for deterministic iteration. Callers broadcasting from the snapshot are
// unaffected by concurrent membership changes mid-dispatch.
func (d *Directory) MembersOf(worldId, locId string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	inst, ok := d.worlds[worldId]
	if !ok {
		return nil
	}
	loc, ok := inst.byLoc[locId]
	if !ok {
		return nil
	}

	members := make([]string, 0, len(loc))
	for connId := range loc {
		members = append(members, connId)
	}
	sort.Strings(members)
	return members
}

// Snapshot returns a copy of every location member set in a world, taken
// under one lock acquisition, so cross-location consistency holds within the
// returned value.
func (d *Directory) Snapshot(worldId string) map[string][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	inst, ok := d.worlds[worldId]
	if !ok {
		return nil
	}

	snap := make(map[string][]string, len(inst.byLoc))
	for locId, loc := range inst.byLoc {
		members := make([]string, 0, len(loc))
		for connId := range loc {
			members = append(members, connId)
		}
		sort.Strings(members)
		snap[locId] = members
	}
	return snap
}

// Occupancy reports where a connection currently is.
func (d *Directory) Occupancy(connId string) (worldId, locId string, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	occ, found := d.occupants[connId]
	if !found {
		return "", "", false
	}
	return occ.worldId, occ.locId, true
}

// MemberCount returns the number of connections in a world.
func (d *Directory) MemberCount(worldId string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	inst, ok := d.worlds[worldId]
	if !ok {
		return 0
	}
	return len(inst.members)
}

// WorldCount returns the number of defined worlds.
func (d *Directory) WorldCount() int {
	return len(d.worlds)
}

// WorldName returns the display name of a world, or "" if unknown.
func (d *Directory) WorldName(worldId string) string {
	inst, ok := d.worlds[worldId]
	if !ok {
		return ""
	}
	return inst.def.Name
}

// LocationName returns the display name of a location, or "" if unknown.
func (d *Directory) LocationName(worldId, locId string) string {
	inst, ok := d.worlds[worldId]
	if !ok {
		return ""
	}
	loc, ok := inst.def.Locations[locId]
	if !ok {
		return ""
	}
	return loc.Name
}
