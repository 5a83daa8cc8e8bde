package messaging

import (
	"fmt"

	"github.com/dragonslegacy/worldserver/internal/events"
)

// ScopeKind selects how the audience for a broadcast is computed.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeLocation
	ScopeParty
)

// Scope names the audience for one outbound event.
type Scope struct {
	Kind       ScopeKind
	WorldId    string
	LocationId string
	Members    []string
}

// Global addresses every live connection.
func Global() Scope {
	return Scope{Kind: ScopeGlobal}
}

// Location addresses the members of one location.
func Location(worldId, locId string) Scope {
	return Scope{Kind: ScopeLocation, WorldId: worldId, LocationId: locId}
}

// Party addresses an explicit member list. There is no party system yet; the
// scope exists so party-aware callers have a defined delivery contract.
func Party(connIds []string) Scope {
	return Scope{Kind: ScopeParty, Members: connIds}
}

// Publisher sends a payload to a single subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Presence lists every live connection. Satisfied by session.Registry.
type Presence interface {
	ConnectionIds() []string
}

// Memberships returns a point-in-time snapshot of a location's member set.
// Satisfied by world.Directory.
type Memberships interface {
	MembersOf(worldId, locId string) []string
}

// Router computes the effective audience for an outbound event and delivers
// it exactly once to each member. Audiences come from membership snapshots: a
// connection joining or leaving mid-broadcast is included or excluded based
// on membership at snapshot time, never split. Delivery to a connection that
// has since disconnected is a no-op (its subject has no subscriber).
type Router struct {
	pub      Publisher
	presence Presence
	members  Memberships
}

func NewRouter(pub Publisher, presence Presence, members Memberships) *Router {
	return &Router{
		pub:      pub,
		presence: presence,
		members:  members,
	}
}

// Broadcast delivers the event to every connection in scope. If exclude is
// non-empty, that connection (normally the originator) is skipped.
func (r *Router) Broadcast(scope Scope, exclude string, eventType string, payload any) error {
	data, err := events.Encode(eventType, payload)
	if err != nil {
		return err
	}

	var audience []string
	switch scope.Kind {
	case ScopeGlobal:
		audience = r.presence.ConnectionIds()
	case ScopeLocation:
		audience = r.members.MembersOf(scope.WorldId, scope.LocationId)
	case ScopeParty:
		audience = scope.Members
	default:
		return fmt.Errorf("unknown scope kind %d", scope.Kind)
	}

	seen := make(map[string]bool, len(audience))
	var firstErr error
	for _, connId := range audience {
		if connId == exclude || seen[connId] {
			continue
		}
		seen[connId] = true
		if err := r.pub.Publish(ConnSubject(connId), data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Send delivers the event to a single connection.
func (r *Router) Send(connId string, eventType string, payload any) error {
	data, err := events.Encode(eventType, payload)
	if err != nil {
		return err
	}
	return r.pub.Publish(ConnSubject(connId), data)
}

// SendError reports a rejected operation back to the originating connection.
func (r *Router) SendError(connId string, code string, err error) error {
	return r.Send(connId, events.TypeError, events.ErrorEvent{
		Code:    code,
		Message: err.Error(),
	})
}
