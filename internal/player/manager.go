// Package player runs the server side of one connection's lifecycle: join,
// move, chat, battle, save, disconnect. Every client event passes through
// Dispatch, which serializes state transitions per connection and reports
// rejections back to the originating connection without closing it.
package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dragonslegacy/worldserver/internal/battle"
	"github.com/dragonslegacy/worldserver/internal/events"
	"github.com/dragonslegacy/worldserver/internal/messaging"
	"github.com/dragonslegacy/worldserver/internal/persist"
	"github.com/dragonslegacy/worldserver/internal/session"
	"github.com/dragonslegacy/worldserver/internal/world"
)

const defaultIdleTimeout = 30 * time.Minute

type Manager struct {
	registry *session.Registry
	dir      *world.Directory
	router   *messaging.Router
	battles  *battle.Manager
	gateway  *persist.Gateway

	defaultWorld    string
	defaultLocation string
	idleTimeout     time.Duration

	mu      sync.Mutex
	kickers map[string]func()
	sheets  map[string]battle.PlayerStats
}

func NewManager(
	registry *session.Registry,
	dir *world.Directory,
	router *messaging.Router,
	battles *battle.Manager,
	gateway *persist.Gateway,
	defaultWorld, defaultLocation string,
) *Manager {
	return &Manager{
		registry:        registry,
		dir:             dir,
		router:          router,
		battles:         battles,
		gateway:         gateway,
		defaultWorld:    defaultWorld,
		defaultLocation: defaultLocation,
		idleTimeout:     defaultIdleTimeout,
		kickers:         make(map[string]func()),
		sheets:          make(map[string]battle.PlayerStats),
	}
}

// SetIdleTimeout overrides the idle sweep cutoff. Zero disables the sweep.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	m.idleTimeout = d
}

// HandleConnect registers a fresh connection. The kick function force-closes
// the underlying transport and is invoked by the idle sweep.
func (m *Manager) HandleConnect(connId string, kick func()) {
	m.registry.Register(connId)

	m.mu.Lock()
	m.kickers[connId] = kick
	m.mu.Unlock()

	m.broadcastOnlineCount()
}

// HandleDisconnect is the universal cancellation signal. It unwinds the
// registry attachment, the world membership, and any open battle session, in
// that order, and is safe to call more than once.
func (m *Manager) HandleDisconnect(ctx context.Context, connId string) {
	conn, err := m.registry.Lookup(connId)
	if err != nil {
		return
	}

	// Unregister removes the registry entry and evicts the directory
	// membership behind it.
	m.registry.Unregister(connId)

	if s, ok := m.battles.Abort(connId); ok {
		slog.InfoContext(ctx, "battle aborted on disconnect", "battle", s.Id, "conn", connId)
	}

	m.mu.Lock()
	delete(m.kickers, connId)
	delete(m.sheets, connId)
	m.mu.Unlock()

	if conn.Username != "" {
		_ = m.router.Broadcast(messaging.Global(), connId, events.TypePlayerLeft, events.PlayerLeft{
			Username: conn.Username,
		})
	}
	m.broadcastOnlineCount()
}

// Dispatch decodes and executes one client event. All errors are reported to
// the originating connection as a rejection event and swallowed here; the
// connection stays open.
func (m *Manager) Dispatch(ctx context.Context, connId string, raw []byte) {
	m.registry.MarkActive(connId)

	eventType, payload, err := events.Decode(raw)
	if err != nil {
		m.reject(connId, err)
		return
	}

	switch ev := payload.(type) {
	case *events.JoinGame:
		err = m.handleJoin(connId, ev)
	case *events.PlayerMove:
		err = m.handleMove(connId, ev)
	case *events.ChatMessage:
		err = m.handleChat(connId, ev)
	case *events.StartBattle:
		err = m.handleStartBattle(connId, ev)
	case *events.BattleAction:
		err = m.handleBattleAction(connId, ev)
	case *events.SaveGame:
		err = m.handleSave(connId, ev)
	}

	if err != nil {
		slog.DebugContext(ctx, "event rejected", "type", eventType, "conn", connId, "error", err)
		m.reject(connId, err)
	}
}

func (m *Manager) handleJoin(connId string, ev *events.JoinGame) error {
	playerId := persist.PlayerId(ev.Username)
	if playerId == "" {
		return events.ErrInvalidRequest
	}

	// Membership first, attachment second: AttachIdentity cannot fail on a
	// registered, unattached connection, so a successful Join is never left
	// dangling. The rollback below covers the remaining failure paths.
	conn, err := m.registry.Lookup(connId)
	if err != nil || conn.Attached() {
		return session.ErrInvalidState
	}

	if err := m.dir.Join(m.defaultWorld, m.defaultLocation, connId); err != nil {
		return err
	}
	if err := m.registry.AttachIdentity(connId, playerId, ev.Username, m.defaultWorld, m.defaultLocation); err != nil {
		m.dir.Leave(connId)
		return err
	}

	m.mu.Lock()
	m.sheets[connId] = toStats(ev.Character)
	m.mu.Unlock()

	// Saved progress is loaded after membership is established; a missing
	// record is a first-time player, not an error.
	if rec, err := m.gateway.Load(playerId); err == nil && len(rec.Progress) > 0 {
		_ = m.router.Send(connId, events.TypeLoadGameData, events.LoadGameData{
			Payload:  rec.Progress,
			LastSave: rec.LastSave,
		})
	}

	_ = m.router.Broadcast(messaging.Global(), connId, events.TypePlayerJoined, events.PlayerJoined{
		Username: ev.Username,
		Location: m.defaultLocation,
	})

	return m.router.Send(connId, events.TypeWorldData, events.WorldData{
		World:           m.dir.WorldName(m.defaultWorld),
		PlayersInWorld:  m.dir.MemberCount(m.defaultWorld),
		CurrentLocation: m.defaultLocation,
		LocationName:    m.dir.LocationName(m.defaultWorld, m.defaultLocation),
	})
}

func (m *Manager) handleMove(connId string, ev *events.PlayerMove) error {
	conn, err := m.registry.Lookup(connId)
	if err != nil || !conn.Attached() {
		return session.ErrInvalidState
	}

	if err := m.dir.Move(connId, ev.FromLocation, ev.ToLocation); err != nil {
		return err
	}
	if err := m.registry.UpdateLocation(connId, ev.ToLocation); err != nil {
		return err
	}

	_ = m.router.Broadcast(messaging.Location(conn.WorldId, ev.ToLocation), connId, events.TypePlayerMovedIn, events.PlayerMoved{
		Username: conn.Username,
		From:     ev.FromLocation,
	})
	_ = m.router.Broadcast(messaging.Location(conn.WorldId, ev.FromLocation), connId, events.TypePlayerMovedOut, events.PlayerMoved{
		Username: conn.Username,
		To:       ev.ToLocation,
	})
	return nil
}

func (m *Manager) handleChat(connId string, ev *events.ChatMessage) error {
	conn, err := m.registry.Lookup(connId)
	if err != nil || !conn.Attached() {
		return session.ErrInvalidState
	}

	msg := events.ChatBroadcast{
		Username:  conn.Username,
		Message:   ev.Message,
		Channel:   ev.Channel,
		Timestamp: time.Now().UnixMilli(),
	}

	switch ev.Channel {
	case "global":
		return m.router.Broadcast(messaging.Global(), "", events.TypeChatMessage, msg)
	case "location":
		return m.router.Broadcast(messaging.Location(conn.WorldId, conn.LocationId), "", events.TypeChatMessage, msg)
	default:
		// Party chat has no party system behind it yet.
		return events.ErrInvalidRequest
	}
}

func (m *Manager) handleStartBattle(connId string, ev *events.StartBattle) error {
	conn, err := m.registry.Lookup(connId)
	if err != nil || !conn.Attached() {
		return session.ErrInvalidState
	}

	m.mu.Lock()
	stats := m.sheets[connId]
	m.mu.Unlock()

	s, err := m.battles.Start(connId, ev.EnemyType, stats)
	if err != nil {
		return err
	}

	return m.router.Send(connId, events.TypeBattleStarted, events.BattleStarted{
		BattleId: s.Id,
		Enemy:    s.Enemy.Name,
		EnemyHP:  s.EnemyHP,
		EnemyMax: s.Enemy.MaxHP,
		Turn:     string(s.Turn),
		PlayerHP: s.Player.HP,
		PlayerMP: s.Player.MP,
	})
}

func (m *Manager) handleBattleAction(connId string, ev *events.BattleAction) error {
	res, err := m.battles.Resolve(connId, ev.BattleId, battle.Action(ev.Action))
	if err != nil {
		return err
	}

	return m.router.Send(connId, events.TypeBattleResult, events.BattleResult{
		BattleId:    res.BattleId,
		Action:      string(res.Action),
		Damage:      res.Damage,
		EnemyDamage: res.EnemyDamage,
		EnemyHP:     res.EnemyHP,
		PlayerHP:    res.PlayerHP,
		PlayerMP:    res.PlayerMP,
		Status:      string(res.Status),
		Fled:        res.Fled,
		ExpReward:   res.ExpReward,
		GoldReward:  res.GoldReward,
	})
}

func (m *Manager) handleSave(connId string, ev *events.SaveGame) error {
	conn, err := m.registry.Lookup(connId)
	if err != nil || !conn.Attached() {
		return session.ErrInvalidState
	}

	if err := m.gateway.Save(conn.PlayerId, conn.Username, ev.Payload); err != nil {
		// Persistence failures are reported, not retried.
		return m.router.Send(connId, events.TypeGameSaved, events.GameSaved{
			Success: false,
			Error:   err.Error(),
		})
	}
	return m.router.Send(connId, events.TypeGameSaved, events.GameSaved{Success: true})
}

// Tick kicks connections that have been idle past the timeout. The kick
// closes the transport; the normal disconnect path does the unwinding.
func (m *Manager) Tick(ctx context.Context) error {
	if m.idleTimeout <= 0 {
		return nil
	}

	for _, connId := range m.registry.IdleSince(time.Now().Add(-m.idleTimeout)) {
		m.mu.Lock()
		kick := m.kickers[connId]
		m.mu.Unlock()
		if kick != nil {
			slog.InfoContext(ctx, "kicking idle connection", "conn", connId)
			kick()
		}
	}
	return nil
}

func (m *Manager) broadcastOnlineCount() {
	_ = m.router.Broadcast(messaging.Global(), "", events.TypeOnlineCount, events.OnlineCount{
		Count: m.registry.Count(),
	})
}

// reject reports a failed operation back to the originating connection.
func (m *Manager) reject(connId string, err error) {
	_ = m.router.SendError(connId, errorCode(err), err)
}

// errorCode maps an error to its wire-level rejection code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, world.ErrUnknownWorld):
		return "unknown_world"
	case errors.Is(err, world.ErrUnknownLocation):
		return "unknown_location"
	case errors.Is(err, world.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, world.ErrNotPresent):
		return "not_present"
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, battle.ErrAlreadyInBattle):
		return "invalid_state"
	case errors.Is(err, battle.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, battle.ErrInsufficientResource):
		return "insufficient_resource"
	default:
		return "invalid_request"
	}
}

// toStats converts the wire character sheet into battle stats, filling in
// sane defaults for absent pools.
func toStats(sheet events.CharacterSheet) battle.PlayerStats {
	stats := battle.PlayerStats{
		Strength:     sheet.Strength,
		Intelligence: sheet.Intelligence,
		Agility:      sheet.Agility,
		Defense:      sheet.Defense,
		HP:           sheet.HP,
		MaxHP:        sheet.MaxHP,
		MP:           sheet.MP,
		MaxMP:        sheet.MaxMP,
	}
	if stats.MaxHP <= 0 {
		stats.MaxHP = 100
	}
	if stats.HP <= 0 || stats.HP > stats.MaxHP {
		stats.HP = stats.MaxHP
	}
	if stats.MaxMP <= 0 {
		stats.MaxMP = 50
	}
	if stats.MP < 0 || stats.MP > stats.MaxMP {
		stats.MP = stats.MaxMP
	}
	return stats
}
