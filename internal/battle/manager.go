package battle

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dragonslegacy/worldserver/internal/storage"
)

var (
	ErrSessionClosed        = errors.New("battle session closed")
	ErrInsufficientResource = errors.New("insufficient mana")
	ErrUnknownEnemy         = errors.New("unknown enemy type")
	ErrAlreadyInBattle      = errors.New("already in battle")
	ErrUnknownAction        = errors.New("unknown battle action")
)

const defaultSessionTTL = 10 * time.Minute

// Result reports the outcome of one resolved turn.
type Result struct {
	BattleId    string
	Action      Action
	Damage      int
	EnemyDamage int
	EnemyHP     int
	PlayerHP    int
	PlayerMP    int
	Status      Status
	Fled        bool
	ExpReward   int
	GoldReward  int
}

// Manager owns every active battle session. One action resolves per call
// under the manager lock, so resource checks and deductions are atomic and a
// disconnect racing an in-flight action sees either a clean resolution or
// ErrSessionClosed, never a half-applied turn.
type Manager struct {
	mu       sync.Mutex
	enemies  storage.Storer[*Enemy]
	sessions map[string]*Session
	byOwner  map[string]string // connection id -> battle id

	ttl  time.Duration
	intn func(int) int
}

func NewManager(enemies storage.Storer[*Enemy]) *Manager {
	return &Manager{
		enemies:  enemies,
		sessions: make(map[string]*Session),
		byOwner:  make(map[string]string),
		ttl:      defaultSessionTTL,
		intn:     rand.IntN,
	}
}

// Start creates an active session for the owning connection against the
// named enemy type. A connection can hold at most one active session.
func (m *Manager) Start(ownerId, enemyType string, stats PlayerStats) (*Session, error) {
	def := m.enemies.Get(enemyType)
	if def == nil {
		return nil, ErrUnknownEnemy
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byOwner[ownerId]; ok {
		return nil, ErrAlreadyInBattle
	}

	s := &Session{
		Id:         uuid.New().String(),
		OwnerId:    ownerId,
		Enemy:      def,
		EnemyHP:    def.MaxHP,
		Player:     &stats,
		Turn:       TurnPlayer,
		Status:     StatusActive,
		lastAction: time.Now(),
	}
	m.sessions[s.Id] = s
	m.byOwner[ownerId] = s.Id

	return s, nil
}

// Resolve advances the session state machine by one player action and, when
// the action does not end the battle, the enemy's counter-turn.
func (m *Manager) Resolve(ownerId, battleId string, action Action) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[battleId]
	if !ok || s.OwnerId != ownerId || s.Status != StatusActive {
		return nil, ErrSessionClosed
	}

	res := &Result{
		BattleId: battleId,
		Action:   action,
	}

	switch action {
	case ActionAttack:
		res.Damage = PhysicalDamage(s.Player.Strength, m.intn(physicalBonusRange), s.Enemy.Defense)
		m.applyEnemyDamage(s, res)

	case ActionMagic:
		// Check and deduction under the manager lock: atomic.
		if s.Player.MP < magicCost {
			return nil, ErrInsufficientResource
		}
		s.Player.MP -= magicCost
		res.Damage = MagicDamage(s.Player.Intelligence, m.intn(magicBonusRange))
		m.applyEnemyDamage(s, res)

	case ActionDefend:
		s.defending = true
		m.enemyTurn(s, res)

	case ActionFlee:
		if m.intn(100) < FleeChance(s.Player.Agility) {
			res.Fled = true
			s.close(StatusFled)
			m.remove(s)
		} else {
			m.enemyTurn(s, res)
		}

	default:
		return nil, ErrUnknownAction
	}

	s.lastAction = time.Now()
	res.EnemyHP = s.EnemyHP
	res.PlayerHP = s.Player.HP
	res.PlayerMP = s.Player.MP
	res.Status = s.Status
	return res, nil
}

// applyEnemyDamage applies a player hit to the enemy, transitioning to won
// when its HP reaches zero, otherwise letting the enemy counter.
func (m *Manager) applyEnemyDamage(s *Session, res *Result) {
	s.EnemyHP -= res.Damage
	if s.EnemyHP <= 0 {
		s.EnemyHP = 0
		res.ExpReward = s.Enemy.ExpReward
		res.GoldReward = s.Enemy.GoldReward
		s.close(StatusWon)
		m.remove(s)
		return
	}
	m.enemyTurn(s, res)
}

// enemyTurn resolves the enemy counter-attack against the player's effective
// defense, consuming any pending defend. Player HP reaching zero ends the
// session as lost.
func (m *Manager) enemyTurn(s *Session, res *Result) {
	s.Turn = TurnEnemy
	res.EnemyDamage = PhysicalDamage(s.Enemy.Attack, m.intn(physicalBonusRange), s.EffectiveDefense())
	s.defending = false

	s.Player.HP -= res.EnemyDamage
	if s.Player.HP <= 0 {
		s.Player.HP = 0
		s.close(StatusLost)
		m.remove(s)
		return
	}
	s.Turn = TurnPlayer
}

// Abort ends the owning connection's active session, releasing any pending
// defend. It is the disconnect path and is idempotent.
func (m *Manager) Abort(ownerId string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	battleId, ok := m.byOwner[ownerId]
	if !ok {
		return nil, false
	}
	s := m.sessions[battleId]
	s.close(StatusAborted)
	m.remove(s)
	return s, true
}

// Session returns the owning connection's active session, if any.
func (m *Manager) Session(ownerId string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	battleId, ok := m.byOwner[ownerId]
	if !ok {
		return nil, false
	}
	return m.sessions[battleId], true
}

// remove drops a closed session from the indexes. Caller holds the lock.
func (m *Manager) remove(s *Session) {
	delete(m.sessions, s.Id)
	delete(m.byOwner, s.OwnerId)
}

// Tick aborts sessions with no action inside the TTL. Called by the driver.
func (m *Manager) Tick(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	for _, s := range m.sessions {
		if s.lastAction.Before(cutoff) {
			slog.InfoContext(ctx, "expiring stale battle session", "battle", s.Id, "owner", s.OwnerId)
			s.close(StatusAborted)
			m.remove(s)
		}
	}
	return nil
}
