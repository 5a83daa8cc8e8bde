// Package events defines the typed event vocabulary carried over the
// per-connection channel. Client events arrive as a tagged envelope and are
// decoded through a single path so malformed payloads are rejected uniformly.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRequest rejects malformed or unexpected payloads. The connection
// stays open; the error is reported back as a rejection event.
var ErrInvalidRequest = errors.New("invalid request")

// Client event types.
const (
	TypeJoinGame     = "join_game"
	TypePlayerMove   = "player_move"
	TypeChatMessage  = "chat_message"
	TypeStartBattle  = "start_battle"
	TypeBattleAction = "battle_action"
	TypeSaveGame     = "save_game"
)

// Server event types.
const (
	TypeWorldData      = "world_data"
	TypePlayerJoined   = "player_joined"
	TypePlayerMovedIn  = "player_moved_in"
	TypePlayerMovedOut = "player_moved_out"
	TypePlayerLeft     = "player_left"
	TypeBattleStarted  = "battle_started"
	TypeBattleResult   = "battle_result"
	TypeGameSaved      = "game_saved"
	TypeOnlineCount    = "online_count_update"
	TypeLoadGameData   = "load_game_data"
	TypeError          = "error"
)

// Envelope is the wire form of every event in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CharacterSheet carries the stats used by the battle system.
type CharacterSheet struct {
	Strength     int `json:"str"`
	Intelligence int `json:"int"`
	Agility      int `json:"agi"`
	Defense      int `json:"defense"`
	MaxHP        int `json:"max_hp"`
	HP           int `json:"hp"`
	MaxMP        int `json:"max_mp"`
	MP           int `json:"mp"`
	Level        int `json:"level"`
}

// Client payloads.

type JoinGame struct {
	Username  string         `json:"username"`
	Character CharacterSheet `json:"characterData"`
}

type PlayerMove struct {
	FromLocation string `json:"fromLocation"`
	ToLocation   string `json:"toLocation"`
}

type ChatMessage struct {
	Message string `json:"message"`
	Channel string `json:"channel"`
}

type StartBattle struct {
	EnemyType string `json:"enemyType"`
}

type BattleAction struct {
	BattleId string `json:"battleId"`
	Action   string `json:"action"`
}

type SaveGame struct {
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a raw client message into its typed payload. Unknown event
// types and malformed payloads fail with ErrInvalidRequest.
func Decode(raw []byte) (string, any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var payload any
	switch env.Type {
	case TypeJoinGame:
		payload = &JoinGame{}
	case TypePlayerMove:
		payload = &PlayerMove{}
	case TypeChatMessage:
		payload = &ChatMessage{}
	case TypeStartBattle:
		payload = &StartBattle{}
	case TypeBattleAction:
		payload = &BattleAction{}
	case TypeSaveGame:
		payload = &SaveGame{}
	default:
		return "", nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidRequest, env.Type)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return "", nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidRequest, env.Type, err)
		}
	}

	return env.Type, payload, nil
}

// Encode wraps a server payload in an envelope and marshals it.
func Encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Data: data})
}

// Server payloads.

type WorldData struct {
	World           string `json:"world"`
	PlayersInWorld  int    `json:"playersInWorld"`
	CurrentLocation string `json:"currentLocation"`
	LocationName    string `json:"locationName"`
}

type PlayerJoined struct {
	Username string `json:"username"`
	Location string `json:"location"`
}

type PlayerMoved struct {
	Username string `json:"username"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

type PlayerLeft struct {
	Username string `json:"username"`
}

type ChatBroadcast struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"`
}

type BattleStarted struct {
	BattleId string `json:"id"`
	Enemy    string `json:"enemy"`
	EnemyHP  int    `json:"enemyHP"`
	EnemyMax int    `json:"enemyMaxHP"`
	Turn     string `json:"turn"`
	PlayerHP int    `json:"playerHP"`
	PlayerMP int    `json:"playerMP"`
}

type BattleResult struct {
	BattleId    string `json:"battleId"`
	Action      string `json:"action"`
	Damage      int    `json:"damage"`
	EnemyDamage int    `json:"enemyDamage"`
	EnemyHP     int    `json:"enemyHP"`
	PlayerHP    int    `json:"playerHP"`
	PlayerMP    int    `json:"playerMP"`
	Status      string `json:"status"`
	Fled        bool   `json:"fled,omitempty"`
	ExpReward   int    `json:"expReward,omitempty"`
	GoldReward  int    `json:"goldReward,omitempty"`
}

type GameSaved struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type OnlineCount struct {
	Count int `json:"count"`
}

type LoadGameData struct {
	Payload  json.RawMessage `json:"payload"`
	LastSave int64           `json:"lastSave"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
