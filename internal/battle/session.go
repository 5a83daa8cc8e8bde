package battle

import (
	"time"
)

// Status is the battle session state. A session is created active and is
// destroyed as soon as it reaches any terminal state.
type Status string

const (
	StatusActive  Status = "active"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
	StatusFled    Status = "fled"
	StatusAborted Status = "aborted"
)

// Turn identifies whose turn it is.
type Turn string

const (
	TurnPlayer Turn = "player"
	TurnEnemy  Turn = "enemy"
)

// Action is one player move in a battle turn.
type Action string

const (
	ActionAttack Action = "attack"
	ActionMagic  Action = "magic"
	ActionDefend Action = "defend"
	ActionFlee   Action = "flee"
)

// PlayerStats are the combat-relevant stats of the session owner. The battle
// mutates HP and MP only; Defense stays at its baseline, the defend action is
// tracked on the session instead.
type PlayerStats struct {
	Strength     int
	Intelligence int
	Agility      int
	Defense      int
	HP           int
	MaxHP        int
	MP           int
	MaxMP        int
}

// Session is one ephemeral turn-based battle, owned by a single connection.
// It is never shared across connections and never persisted.
type Session struct {
	Id      string
	OwnerId string

	Enemy   *Enemy
	EnemyHP int

	Player *PlayerStats
	Turn   Turn
	Status Status

	// defending doubles effective defense for exactly one enemy turn.
	defending bool

	lastAction time.Time
}

// EffectiveDefense is the player's defense for the next enemy attack.
func (s *Session) EffectiveDefense() int {
	if s.defending {
		return s.Player.Defense * 2
	}
	return s.Player.Defense
}

// Defending reports whether a defend action is pending an enemy turn.
func (s *Session) Defending() bool {
	return s.defending
}

// close moves the session to a terminal state and releases any pending
// defend, so the doubled defense never outlives the session.
func (s *Session) close(status Status) {
	s.Status = status
	s.defending = false
}
